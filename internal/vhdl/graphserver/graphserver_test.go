package graphserver

import (
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sampleOptim = `vhdl file="t.vhd"
  entity line="1" id="e"
    ports
      port line="1" id="a" io="in"
        type id="bit"
      port line="1" id="b" io="out"
        type id="bit"
  architecture line="2" entity="e" id="rtl"
    parallelStatements
      assignParallelStatement line="3" guarded="false" postponed="false"
        objectExpression line="3" id="b"
        signalValue
          expressions
            objectExpression line="3" id="a"
`

func TestServer_GetMissingGraph(t *testing.T) {
	s := &Server{Dir: t.TempDir()}
	req := httptest.NewRequest(http.MethodGet, "/graphs/rtl", nil)
	rec := httptest.NewRecorder()
	s.Router().ServeHTTP(rec, req)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestServer_RegenerateWritesDotAndServesIt(t *testing.T) {
	dir := t.TempDir()
	s := &Server{Dir: dir}

	req := httptest.NewRequest(http.MethodPost, "/graphs/rtl/regenerate", strings.NewReader(sampleOptim))
	rec := httptest.NewRecorder()
	s.Router().ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "a -> b;")

	written, err := os.ReadFile(filepath.Join(dir, "rtl.dot"))
	require.NoError(t, err)
	assert.Equal(t, rec.Body.String(), string(written))

	getReq := httptest.NewRequest(http.MethodGet, "/graphs/rtl", nil)
	getRec := httptest.NewRecorder()
	s.Router().ServeHTTP(getRec, getReq)
	assert.Equal(t, http.StatusOK, getRec.Code)
	assert.Equal(t, rec.Body.String(), getRec.Body.String())
}

func TestServer_RegenerateRequiresBearerWhenSecretSet(t *testing.T) {
	s := &Server{Dir: t.TempDir(), Secret: []byte("sekrit")}

	req := httptest.NewRequest(http.MethodPost, "/graphs/rtl/regenerate", strings.NewReader(sampleOptim))
	rec := httptest.NewRecorder()
	s.Router().ServeHTTP(rec, req)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	tok := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"iss": "vhdgraphserver",
		"exp": time.Now().Add(time.Hour).Unix(),
	})
	signed, err := tok.SignedString(s.Secret)
	require.NoError(t, err)

	authedReq := httptest.NewRequest(http.MethodPost, "/graphs/rtl/regenerate", strings.NewReader(sampleOptim))
	authedReq.Header.Set("Authorization", "Bearer "+signed)
	authedRec := httptest.NewRecorder()
	s.Router().ServeHTTP(authedRec, authedReq)
	assert.Equal(t, http.StatusOK, authedRec.Code)
}

// Package graphserver implements the dependency-graph HTTP server: it
// serves previously generated .dot files from a directory and exposes one
// mutating endpoint that re-runs the design loader and dependency analyzer
// against a freshly posted .optim.xml body. Routing is
// github.com/go-chi/chi/v5 with JSON error results; the mutating endpoint
// is gated by a single static-secret bearer check, since there is no user
// database to look a subject up in.
package graphserver

import (
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/dekarrin/vhdlfront/internal/diag"
	"github.com/dekarrin/vhdlfront/internal/vhdl/depgraph"
	"github.com/dekarrin/vhdlfront/internal/vhdl/design"
	"github.com/dekarrin/vhdlfront/internal/vhdl/treeio"
	"github.com/go-chi/chi/v5"
	"github.com/golang-jwt/jwt/v5"
)

// Server holds the configuration needed to serve and regenerate graphs.
type Server struct {
	// Dir is the directory .dot files are read from and regenerated into.
	Dir string

	// Secret verifies bearer tokens presented to the regenerate endpoint.
	// A nil/empty Secret disables the check entirely, useful only for local
	// testing.
	Secret []byte

	// Indent is the tree indent width used to parse the posted .optim.xml
	// body with treeio.Read.
	Indent int
}

// Router builds the chi router for this server: GET /graphs/{arch} serves
// the architecture's current .dot file, POST /graphs/{arch}/regenerate
// recomputes it from a posted body.
func (s *Server) Router() chi.Router {
	r := chi.NewRouter()
	r.Get("/graphs/{arch}", s.handleGet)
	r.Post("/graphs/{arch}/regenerate", s.handleRegenerate)
	return r
}

type errorResponse struct {
	Error  string `json:"error"`
	Status int    `json:"status"`
}

func writeError(w http.ResponseWriter, status int, msg string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(errorResponse{Error: msg, Status: status})
}

func (s *Server) handleGet(w http.ResponseWriter, req *http.Request) {
	arch := chi.URLParam(req, "arch")
	path := filepath.Join(s.Dir, arch+".dot")
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			writeError(w, http.StatusNotFound, fmt.Sprintf("no graph for architecture %q", arch))
			return
		}
		writeError(w, http.StatusInternalServerError, "could not read graph")
		return
	}
	w.Header().Set("Content-Type", "text/vnd.graphviz")
	_, _ = w.Write(data)
}

func (s *Server) handleRegenerate(w http.ResponseWriter, req *http.Request) {
	if len(s.Secret) > 0 {
		if err := s.checkBearer(req); err != nil {
			writeError(w, http.StatusUnauthorized, err.Error())
			return
		}
	}

	arch := chi.URLParam(req, "arch")
	body, err := io.ReadAll(req.Body)
	if err != nil {
		writeError(w, http.StatusBadRequest, "could not read request body")
		return
	}
	defer req.Body.Close()

	indent := s.Indent
	if indent <= 0 {
		indent = treeio.DefaultIndent
	}
	tree, err := treeio.Read(strings.NewReader(string(body)), indent)
	if err != nil {
		writeError(w, http.StatusBadRequest, "malformed tree: "+err.Error())
		return
	}

	bag := diag.NewBag()
	file := design.Load(arch, tree, bag)
	if bag.HasErrors() {
		writeError(w, http.StatusUnprocessableEntity, strings.Join(bag.Lines(), "; "))
		return
	}

	var found *design.Architecture
	for _, a := range file.Architectures {
		if a.Name == arch {
			found = a
			break
		}
	}
	if found == nil {
		writeError(w, http.StatusNotFound, fmt.Sprintf("no architecture %q in posted tree", arch))
		return
	}
	ent, ok := file.Entities[found.EntityName]
	if !ok {
		writeError(w, http.StatusUnprocessableEntity, fmt.Sprintf("unknown entity %q", found.EntityName))
		return
	}

	graph := depgraph.Analyze(ent, found, bag)
	if graph == nil {
		writeError(w, http.StatusUnprocessableEntity, strings.Join(bag.Lines(), "; "))
		return
	}
	dot := graph.WriteDot()

	if err := os.MkdirAll(s.Dir, 0o755); err != nil {
		writeError(w, http.StatusInternalServerError, "could not create graph directory")
		return
	}
	outPath := filepath.Join(s.Dir, arch+".dot")
	if err := os.WriteFile(outPath, []byte(dot), 0o644); err != nil {
		writeError(w, http.StatusInternalServerError, "could not write graph")
		return
	}

	log.Printf("INFO  regenerated graph for architecture %q", arch)
	w.Header().Set("Content-Type", "text/vnd.graphviz")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte(dot))
}

// checkBearer validates the request's Authorization header against s.Secret
// using HMAC. A fixed signing key; there is no per-user key material to mix
// in here.
func (s *Server) checkBearer(req *http.Request) error {
	authHeader := strings.TrimSpace(req.Header.Get("Authorization"))
	if authHeader == "" {
		return fmt.Errorf("no authorization header present")
	}
	parts := strings.SplitN(authHeader, " ", 2)
	if len(parts) != 2 || strings.ToLower(strings.TrimSpace(parts[0])) != "bearer" {
		return fmt.Errorf("authorization header not in Bearer format")
	}
	tokStr := strings.TrimSpace(parts[1])

	_, err := jwt.Parse(tokStr, func(t *jwt.Token) (interface{}, error) {
		return s.Secret, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}), jwt.WithLeeway(time.Minute))
	if err != nil {
		return fmt.Errorf("invalid token: %w", err)
	}
	return nil
}

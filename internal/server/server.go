// internal/server/server.go
package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"net/http"

	"github.com/ThinkInAIXYZ/go-mcp/protocol"

	"ecodining/internal/report"
	"ecodining/internal/vision"
	"ecodining/internal/workflow"
)

const Version = "1.0.0"

var ErrReportsDisabled = errors.New("scan archive is disabled, reports are unavailable")

type Config struct {
	Host string
	Port int
}

type toolHandler func(ctx context.Context, req *protocol.CallToolRequest) (*protocol.CallToolResult, error)

type ScanServer struct {
	httpServer *http.Server
	workflow   *workflow.Workflow
	reports    *report.Service
	tools      map[string]toolHandler
	info       protocol.Implementation
}

// NewScanServer exposes wf (and reports, which may be nil) as tool calls
// over HTTP.
func NewScanServer(cfg *Config, wf *workflow.Workflow, reports *report.Service) *ScanServer {
	s := &ScanServer{
		workflow: wf,
		reports:  reports,
		info: protocol.Implementation{
			Name:    "ecodining",
			Version: Version,
		},
	}
	s.registerTools()

	mux := http.NewServeMux()
	mux.HandleFunc("/health", s.handleHealth)
	mux.HandleFunc("/", s.handleHTTP)

	s.httpServer = &http.Server{
		Addr:    fmt.Sprintf("%s:%d", cfg.Host, cfg.Port),
		Handler: mux,
	}
	return s
}

func (s *ScanServer) Handler() http.Handler {
	return s.httpServer.Handler
}

func (s *ScanServer) handleHTTP(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Access-Control-Allow-Origin", "*")
	w.Header().Set("Access-Control-Allow-Methods", "POST, OPTIONS")
	w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")

	if r.Method == http.MethodOptions {
		return
	}
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	var request protocol.CallToolRequest
	if err := json.NewDecoder(r.Body).Decode(&request); err != nil {
		http.Error(w, fmt.Sprintf("Invalid JSON: %v", err), http.StatusBadRequest)
		return
	}

	handler, ok := s.tools[request.Name]
	if !ok {
		http.Error(w, fmt.Sprintf("Unknown tool: %s", request.Name), http.StatusNotFound)
		return
	}

	result, err := handler(r.Context(), &request)
	if err != nil {
		http.Error(w, err.Error(), statusFor(err))
		return
	}

	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(result); err != nil {
		log.Printf("Failed to encode response: %v", err)
	}
}

func (s *ScanServer) handleHealth(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	snap := s.workflow.Snapshot()
	body := map[string]interface{}{
		"status":  "healthy",
		"service": s.info.Name,
		"version": s.info.Version,
		"state":   snap.State,
		"reports": s.reports != nil,
	}
	if err := json.NewEncoder(w).Encode(body); err != nil {
		log.Printf("Failed to encode health response: %v", err)
	}
}

// statusFor maps workflow and decode failures to client errors; everything
// else is a server fault.
func statusFor(err error) int {
	switch {
	case errors.Is(err, errInvalidParams),
		errors.Is(err, workflow.ErrMissingInput),
		errors.Is(err, workflow.ErrUnknownDish),
		errors.Is(err, workflow.ErrEmptyImage),
		errors.Is(err, workflow.ErrInvalidTransition),
		errors.Is(err, vision.ErrDecode):
		return http.StatusBadRequest
	case errors.Is(err, workflow.ErrBusy),
		errors.Is(err, workflow.ErrAlreadyAnalyzing):
		return http.StatusConflict
	case errors.Is(err, workflow.ErrAnalysisTimeout):
		return http.StatusGatewayTimeout
	case errors.Is(err, ErrReportsDisabled):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

func (s *ScanServer) Start(ctx context.Context) error {
	log.Printf("Starting scan server on %s", s.httpServer.Addr)
	if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return err
	}
	return nil
}

func (s *ScanServer) Stop(ctx context.Context) error {
	if s.httpServer != nil {
		return s.httpServer.Shutdown(ctx)
	}
	return nil
}

func (s *ScanServer) createJSONResponse(data interface{}) (*protocol.CallToolResult, error) {
	jsonBytes, err := json.Marshal(data)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal response: %w", err)
	}

	return &protocol.CallToolResult{
		Content: []protocol.Content{
			protocol.TextContent{
				Type: "text",
				Text: string(jsonBytes),
			},
		},
	}, nil
}

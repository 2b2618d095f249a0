// internal/server/tools.go
package server

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"sort"
	"strings"

	"github.com/ThinkInAIXYZ/go-mcp/protocol"

	"ecodining/internal/models"
	"ecodining/internal/workflow"
)

var errInvalidParams = errors.New("invalid parameters")

type CaptureParams struct {
	Image string `json:"image" description:"Base64 encoded photo, optionally as a data URL"`
}

type SelectDishParams struct {
	Dish string `json:"dish" description:"Dish name from list_dishes"`
}

type DailyReportParams struct {
	SiteID string `json:"site_id,omitempty" description:"Site to report on (defaults to the configured site)"`
	Date   string `json:"date,omitempty" description:"Day to report on (YYYY-MM-DD, defaults to today)"`
}

type WeeklyReportParams struct {
	SiteID    string `json:"site_id,omitempty" description:"Site to report on"`
	WeeksBack int    `json:"weeks_back,omitempty" description:"How many weeks before the current one"`
}

type InsightsParams struct {
	SiteID string `json:"site_id,omitempty" description:"Site to report on"`
	Days   int    `json:"days,omitempty" description:"Look-back window in days (defaults to 30)"`
}

// StateResponse is returned by every workflow tool.
type StateResponse struct {
	Workflow workflow.Snapshot `json:"workflow"`
	Balance  int               `json:"balance"`
}

type AnalyzeResponse struct {
	Result   *models.ScanResult `json:"result"`
	Workflow workflow.Snapshot  `json:"workflow"`
	Balance  int                `json:"balance"`
}

type HistoryResponse struct {
	Scans   []models.HistoryEntry `json:"scans"`
	Balance int                   `json:"balance"`
}

// extractParams safely extracts parameters from the request arguments
func extractParams(req *protocol.CallToolRequest, target interface{}) error {
	jsonBytes, err := json.Marshal(req.Arguments)
	if err != nil {
		return fmt.Errorf("%w: failed to marshal arguments: %v", errInvalidParams, err)
	}

	if err := json.Unmarshal(jsonBytes, target); err != nil {
		return fmt.Errorf("%w: %v", errInvalidParams, err)
	}

	return nil
}

// decodeImage accepts raw base64 or a data URL as produced by a browser
// file reader.
func decodeImage(encoded string) ([]byte, error) {
	if encoded == "" {
		return nil, fmt.Errorf("%w: image is required", errInvalidParams)
	}
	if strings.HasPrefix(encoded, "data:") {
		comma := strings.IndexByte(encoded, ',')
		if comma < 0 {
			return nil, fmt.Errorf("%w: malformed data URL", errInvalidParams)
		}
		encoded = encoded[comma+1:]
	}
	data, err := base64.StdEncoding.DecodeString(encoded)
	if err != nil {
		return nil, fmt.Errorf("%w: image is not valid base64: %v", errInvalidParams, err)
	}
	return data, nil
}

func (s *ScanServer) stateResponse(snap workflow.Snapshot, err error) (*protocol.CallToolResult, error) {
	if err != nil {
		return nil, err
	}
	return s.createJSONResponse(StateResponse{Workflow: snap, Balance: s.workflow.Ledger().Balance()})
}

func (s *ScanServer) handleStartScan(ctx context.Context, req *protocol.CallToolRequest) (*protocol.CallToolResult, error) {
	return s.stateResponse(s.workflow.Start())
}

func (s *ScanServer) handleCaptureBefore(ctx context.Context, req *protocol.CallToolRequest) (*protocol.CallToolResult, error) {
	var params CaptureParams
	if err := extractParams(req, &params); err != nil {
		return nil, err
	}
	data, err := decodeImage(params.Image)
	if err != nil {
		return nil, err
	}
	return s.stateResponse(s.workflow.CaptureBefore(data))
}

func (s *ScanServer) handleNext(ctx context.Context, req *protocol.CallToolRequest) (*protocol.CallToolResult, error) {
	return s.stateResponse(s.workflow.Next())
}

func (s *ScanServer) handleSelectDish(ctx context.Context, req *protocol.CallToolRequest) (*protocol.CallToolResult, error) {
	var params SelectDishParams
	if err := extractParams(req, &params); err != nil {
		return nil, err
	}
	return s.stateResponse(s.workflow.SelectDish(params.Dish))
}

func (s *ScanServer) handleCaptureAfter(ctx context.Context, req *protocol.CallToolRequest) (*protocol.CallToolResult, error) {
	var params CaptureParams
	if err := extractParams(req, &params); err != nil {
		return nil, err
	}
	data, err := decodeImage(params.Image)
	if err != nil {
		return nil, err
	}
	return s.stateResponse(s.workflow.CaptureAfter(data))
}

func (s *ScanServer) handleAnalyze(ctx context.Context, req *protocol.CallToolRequest) (*protocol.CallToolResult, error) {
	result, err := s.workflow.Analyze(ctx)
	if err != nil {
		return nil, err
	}
	return s.createJSONResponse(AnalyzeResponse{
		Result:   result,
		Workflow: s.workflow.Snapshot(),
		Balance:  s.workflow.Ledger().Balance(),
	})
}

func (s *ScanServer) handleDismiss(ctx context.Context, req *protocol.CallToolRequest) (*protocol.CallToolResult, error) {
	return s.stateResponse(s.workflow.Dismiss())
}

func (s *ScanServer) handleCancel(ctx context.Context, req *protocol.CallToolRequest) (*protocol.CallToolResult, error) {
	return s.stateResponse(s.workflow.Cancel())
}

func (s *ScanServer) handleGetState(ctx context.Context, req *protocol.CallToolRequest) (*protocol.CallToolResult, error) {
	return s.stateResponse(s.workflow.Snapshot(), nil)
}

func (s *ScanServer) handleGetHistory(ctx context.Context, req *protocol.CallToolRequest) (*protocol.CallToolResult, error) {
	entries, balance := s.workflow.Ledger().Snapshot()
	return s.createJSONResponse(HistoryResponse{Scans: entries, Balance: balance})
}

func (s *ScanServer) handleListDishes(ctx context.Context, req *protocol.CallToolRequest) (*protocol.CallToolResult, error) {
	return s.createJSONResponse(map[string]interface{}{"dishes": s.workflow.Menu().Dishes()})
}

func (s *ScanServer) handleDailyReport(ctx context.Context, req *protocol.CallToolRequest) (*protocol.CallToolResult, error) {
	if s.reports == nil {
		return nil, ErrReportsDisabled
	}
	var params DailyReportParams
	if err := extractParams(req, &params); err != nil {
		return nil, err
	}
	rep, err := s.reports.Daily(params.SiteID, params.Date)
	if err != nil {
		return nil, fmt.Errorf("failed to build daily report: %w", err)
	}
	return s.createJSONResponse(rep)
}

func (s *ScanServer) handleWeeklyReport(ctx context.Context, req *protocol.CallToolRequest) (*protocol.CallToolResult, error) {
	if s.reports == nil {
		return nil, ErrReportsDisabled
	}
	var params WeeklyReportParams
	if err := extractParams(req, &params); err != nil {
		return nil, err
	}
	rep, err := s.reports.Weekly(params.SiteID, params.WeeksBack)
	if err != nil {
		return nil, fmt.Errorf("failed to build weekly report: %w", err)
	}
	return s.createJSONResponse(rep)
}

func (s *ScanServer) handleGetInsights(ctx context.Context, req *protocol.CallToolRequest) (*protocol.CallToolResult, error) {
	if s.reports == nil {
		return nil, ErrReportsDisabled
	}
	var params InsightsParams
	if err := extractParams(req, &params); err != nil {
		return nil, err
	}
	insights, err := s.reports.Insights(params.SiteID, params.Days)
	if err != nil {
		return nil, fmt.Errorf("failed to build insights: %w", err)
	}
	return s.createJSONResponse(map[string]interface{}{"insights": insights})
}

func (s *ScanServer) registerTools() {
	s.tools = map[string]toolHandler{
		"start_scan":     s.handleStartScan,
		"capture_before": s.handleCaptureBefore,
		"next":           s.handleNext,
		"select_dish":    s.handleSelectDish,
		"capture_after":  s.handleCaptureAfter,
		"analyze":        s.handleAnalyze,
		"dismiss":        s.handleDismiss,
		"cancel":         s.handleCancel,
		"get_state":      s.handleGetState,
		"get_history":    s.handleGetHistory,
		"list_dishes":    s.handleListDishes,
		"daily_report":   s.handleDailyReport,
		"weekly_report":  s.handleWeeklyReport,
		"get_insights":   s.handleGetInsights,
	}

	names := make([]string, 0, len(s.tools))
	for name := range s.tools {
		names = append(names, name)
	}
	sort.Strings(names)
	log.Printf("Registered tools: %s", strings.Join(names, ", "))
}

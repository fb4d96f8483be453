package server

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"github.com/entrhq/testforge/pkg/generator"
	"github.com/entrhq/testforge/pkg/instrument"
	"github.com/entrhq/testforge/pkg/types"
)

// maxBodyBytes bounds request bodies.
const maxBodyBytes = 1 << 20

// GenerateRequest is the POST /generate-test payload.
type GenerateRequest struct {
	TargetURL           string `json:"target_url"`
	TestCaseDescription string `json:"test_case_description"`
	InstanceID          string `json:"instance_id,omitempty"`
}

// GenerateResponse is the POST /generate-test response.
type GenerateResponse struct {
	TestPlan   []string `json:"test_plan"`
	TestScript string   `json:"test_script"`
	Status     string   `json:"status"`
	InstanceID string   `json:"instance_id"`
	Passed     bool     `json:"passed"`
}

// ExecuteRequest is the POST /execute-test payload.
type ExecuteRequest struct {
	TestID string `json:"test_id"`
}

// ExecuteResponse is the POST /execute-test response.
type ExecuteResponse struct {
	Success    bool                `json:"success"`
	Output     string              `json:"output"`
	TestID     string              `json:"test_id"`
	TestPlan   []string            `json:"test_plan"`
	Progress   instrument.Progress `json:"progress"`
	InstanceID string              `json:"instance_id"`
}

// CleanupResponse is the DELETE /workspace/{id} response.
type CleanupResponse struct {
	Status    string `json:"status"`
	Message   string `json:"message"`
	KeptTests bool   `json:"kept_tests"`
}

// ErrorResponse is the body of every error response.
type ErrorResponse struct {
	Error  string `json:"error"`
	Reason string `json:"reason"`
	Output string `json:"output,omitempty"`
}

const errInvalidRequest = string(types.ErrKindInvalidRequest)

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{
		"service": ServiceName,
		"status":  "running",
		"version": Version,
	})
}

func (s *Server) handleGenerate(w http.ResponseWriter, r *http.Request) {
	var req GenerateRequest
	if !decode(w, r, &req) {
		return
	}
	if strings.TrimSpace(req.TargetURL) == "" || strings.TrimSpace(req.TestCaseDescription) == "" {
		writeJSON(w, http.StatusBadRequest, ErrorResponse{Error: errInvalidRequest, Reason: "target_url and test_case_description are required"})
		return
	}

	id := req.InstanceID
	if id == "" {
		id = types.NewInstanceID()
	}
	if err := types.ValidateInstanceID(id); err != nil {
		writeJSON(w, http.StatusBadRequest, ErrorResponse{Error: errInvalidRequest, Reason: err.Error()})
		return
	}

	res, err := s.gen.Generate(r.Context(), generator.Request{
		TargetURL:   req.TargetURL,
		Description: req.TestCaseDescription,
		InstanceID:  id,
	})
	if err != nil {
		s.logger.Errorf("generate %s: %v", id, err)
		if claimedInstance(err) {
			s.gen.Release(id)
			if s.discardOnError {
				if derr := s.gen.Discard(id); derr != nil {
					s.logger.Warnf("discarding %s: %v", id, derr)
				}
			}
		}
		writeError(w, err)
		return
	}

	plan := res.Plan
	if plan == nil {
		plan = []string{}
	}
	writeJSON(w, http.StatusOK, GenerateResponse{
		TestPlan:   plan,
		TestScript: res.Script,
		Status:     res.Status,
		InstanceID: res.InstanceID,
		Passed:     res.Passed,
	})
}

func (s *Server) handleExecute(w http.ResponseWriter, r *http.Request) {
	var req ExecuteRequest
	if !decode(w, r, &req) {
		return
	}
	if strings.TrimSpace(req.TestID) == "" {
		writeJSON(w, http.StatusBadRequest, ErrorResponse{Error: errInvalidRequest, Reason: "test_id is required"})
		return
	}

	exec, err := s.exec.Execute(r.Context(), req.TestID)
	if err != nil {
		s.logger.Errorf("execute %s: %v", req.TestID, err)
		writeError(w, err)
		return
	}

	plan := exec.Plan
	if plan == nil {
		plan = []string{}
	}
	writeJSON(w, http.StatusOK, ExecuteResponse{
		Success:    exec.Success,
		Output:     exec.Output,
		TestID:     exec.TestID,
		TestPlan:   plan,
		Progress:   exec.Progress,
		InstanceID: exec.InstanceID,
	})
}

func (s *Server) handleCleanup(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	if err := types.ValidateInstanceID(id); err != nil {
		writeJSON(w, http.StatusBadRequest, ErrorResponse{Error: errInvalidRequest, Reason: err.Error()})
		return
	}

	keep := false
	if raw := r.URL.Query().Get("keep_tests"); raw != "" {
		parsed, err := strconv.ParseBool(raw)
		if err != nil {
			writeJSON(w, http.StatusBadRequest, ErrorResponse{Error: errInvalidRequest, Reason: "keep_tests must be a boolean"})
			return
		}
		keep = parsed
	}

	if _, err := s.workspaces.Cleanup(id, keep); err != nil {
		writeError(w, err)
		return
	}
	s.logger.Infof("cleaned workspace %s (keep_tests=%v)", id, keep)

	writeJSON(w, http.StatusOK, CleanupResponse{
		Status:    "success",
		Message:   fmt.Sprintf("Workspace cleaned for instance %s", id),
		KeptTests: keep,
	})
}

func decode(w http.ResponseWriter, r *http.Request, v interface{}) bool {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err := dec.Decode(v); err != nil {
		writeJSON(w, http.StatusBadRequest, ErrorResponse{Error: errInvalidRequest, Reason: "invalid JSON body: " + err.Error()})
		return false
	}
	return true
}

// statusFor maps an error kind to its HTTP status.
// claimedInstance reports whether a failed Generate got far enough to own
// the instance id. Errors raised before the id is claimed must not touch it:
// the id may belong to another running request.
func claimedInstance(err error) bool {
	switch types.KindOf(err) {
	case types.ErrKindConfiguration, types.ErrKindInvalidRequest, types.ErrKindInstanceBusy:
		return false
	default:
		return true
	}
}

func statusFor(kind types.ErrorKind) int {
	switch kind {
	case types.ErrKindInvalidRequest:
		return http.StatusBadRequest
	case types.ErrKindNotFound:
		return http.StatusNotFound
	case types.ErrKindInstanceBusy:
		return http.StatusConflict
	case types.ErrKindAgentProtocol:
		return http.StatusBadGateway
	case types.ErrKindExecutionTimeout:
		return http.StatusGatewayTimeout
	default:
		return http.StatusInternalServerError
	}
}

// writeError writes the typed error body. Untyped errors become
// internal_error with a generic reason so internals never leak.
func writeError(w http.ResponseWriter, err error) {
	var te *types.Error
	if !errors.As(err, &te) {
		if errors.Is(err, types.ErrNotFound) {
			writeJSON(w, http.StatusNotFound, ErrorResponse{Error: string(types.ErrKindNotFound), Reason: "not found"})
			return
		}
		writeJSON(w, http.StatusInternalServerError, ErrorResponse{Error: string(types.ErrKindInternal), Reason: "internal error"})
		return
	}
	writeJSON(w, statusFor(te.Kind), ErrorResponse{Error: string(te.Kind), Reason: te.Reason, Output: te.Output})
}

func writeJSON(w http.ResponseWriter, status int, payload interface{}) {
	data, _ := json.Marshal(payload) //nolint:errcheck
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_, _ = w.Write(data)
}

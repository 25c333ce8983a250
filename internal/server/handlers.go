package server

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"github.com/qkdsim/bb84/bb84"
)

// maxBodyBytes caps request bodies well above any accepted message.
const maxBodyBytes = 1 << 20

// messageRequest mirrors the body the web client posts.
type messageRequest struct {
	Message   string `json:"message"`
	Eavesdrop bool   `json:"eavesdrop"`
	// Sender and Encrypted are echoed back untouched.
	Sender    string `json:"sender,omitempty"`
	Encrypted bool   `json:"encrypted,omitempty"`
}

type messageResponse struct {
	bb84.RunResult
	Sender    string `json:"sender,omitempty"`
	Encrypted bool   `json:"encrypted"`
}

type simulateRequest struct {
	NumBits            *int     `json:"num_bits"`
	Eavesdrop          bool     `json:"eavesdrop"`
	DetectionThreshold *float64 `json:"detection_threshold"`
}

func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	page, err := staticFiles.ReadFile("static/index.html")
	if err != nil {
		s.writeError(w, http.StatusInternalServerError, "page unavailable")
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.Write(page)
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusOK, map[string]interface{}{
		"status":    "healthy",
		"service":   "bb84",
		"threshold": s.runner.Threshold(),
	})
}

func (s *Server) handleMessage(w http.ResponseWriter, r *http.Request) {
	var req messageRequest
	if err := s.decode(w, r, &req); err != nil {
		s.writeRunError(w, err)
		return
	}
	res, err := s.runMessage(req)
	if err != nil {
		s.writeRunError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, messageResponse{RunResult: res, Sender: req.Sender, Encrypted: req.Encrypted})
}

func (s *Server) handleSimulate(w http.ResponseWriter, r *http.Request) {
	var req simulateRequest
	if err := s.decode(w, r, &req); err != nil {
		s.writeRunError(w, err)
		return
	}
	in := bb84.Input{Mode: bb84.ModeCount, NumBits: bb84.DefaultNumBits, Eavesdrop: req.Eavesdrop}
	if req.NumBits != nil {
		in.NumBits = *req.NumBits
	}
	runner := s.runner
	if req.DetectionThreshold != nil {
		var err error
		if runner, err = runner.WithThreshold(*req.DetectionThreshold); err != nil {
			s.writeRunError(w, err)
			return
		}
	}
	res, err := s.run(runner, in)
	if err != nil {
		s.writeRunError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, res)
}

func (s *Server) handleTranscript(w http.ResponseWriter, r *http.Request) {
	var req messageRequest
	if err := s.decode(w, r, &req); err != nil {
		s.writeRunError(w, err)
		return
	}
	res, err := s.runMessage(req)
	if err != nil {
		s.writeRunError(w, err)
		return
	}
	var buf bytes.Buffer
	if err := bb84.WriteTranscript(&buf, res); err != nil {
		s.log.Error().Err(err).Str("run_id", res.RunID).Msg("Failed to encode transcript")
		s.writeError(w, http.StatusInternalServerError, "encoding transcript failed")
		return
	}
	w.Header().Set("Content-Type", "application/x-protobuf")
	w.Header().Set("Content-Disposition", fmt.Sprintf(`attachment; filename="bb84-%s.bin"`, res.RunID))
	w.WriteHeader(http.StatusOK)
	w.Write(buf.Bytes())
}

func (s *Server) runMessage(req messageRequest) (bb84.RunResult, error) {
	if s.maxMsg > 0 && len(req.Message) > s.maxMsg {
		return bb84.RunResult{}, &bb84.ConfigurationError{
			Field:  "message",
			Reason: fmt.Sprintf("%d bytes exceeds the limit of %d", len(req.Message), s.maxMsg),
		}
	}
	return s.run(s.runner, bb84.Input{Mode: bb84.ModeMessage, Message: req.Message, Eavesdrop: req.Eavesdrop})
}

func (s *Server) run(runner *bb84.Runner, in bb84.Input) (bb84.RunResult, error) {
	res, err := runner.Run(in)
	if err != nil {
		return bb84.RunResult{}, err
	}
	s.metrics.observe(in.Mode, in.Eavesdrop, res)
	s.log.Info().
		Str("run_id", res.RunID).
		Str("mode", string(in.Mode)).
		Bool("eavesdrop", in.Eavesdrop).
		Int("total_bits", res.TotalBits).
		Int("sifted_key_length", res.SiftedKeyLength).
		Float64("qber", res.QBER).
		Bool("eve_detected", res.EveDetected).
		Msg("Protocol run complete")
	return res, nil
}

// decode reads a JSON body into v. Malformed or mistyped bodies, such as a
// fractional num_bits, are reported as configuration errors.
func (s *Server) decode(w http.ResponseWriter, r *http.Request, v interface{}) error {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		var typeErr *json.UnmarshalTypeError
		if errors.As(err, &typeErr) {
			return &bb84.ConfigurationError{
				Field:  typeErr.Field,
				Reason: fmt.Sprintf("expected %s, got %s", typeErr.Type, typeErr.Value),
			}
		}
		return &bb84.ConfigurationError{Field: "body", Reason: err.Error()}
	}
	return nil
}

func (s *Server) writeRunError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, bb84.ErrInvalidInput), errors.Is(err, bb84.ErrConfiguration):
		s.writeError(w, http.StatusBadRequest, err.Error())
	default:
		s.log.Error().Err(err).Msg("Protocol run failed")
		s.writeError(w, http.StatusInternalServerError, "simulation failed")
	}
}

// writeJSON writes a JSON response
func (s *Server) writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	enc := json.NewEncoder(w)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(data); err != nil {
		s.log.Error().Err(err).Msg("Failed to encode JSON response")
	}
}

// writeError writes an error response
func (s *Server) writeError(w http.ResponseWriter, status int, message string) {
	s.writeJSON(w, status, map[string]string{
		"error": message,
	})
}

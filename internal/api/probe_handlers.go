package api

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"go.uber.org/zap"

	"github.com/rflorenc/rainmaker-workbench/internal/logging"
	"github.com/rflorenc/rainmaker-workbench/internal/models"
)

// maxRunBody bounds the optional credentials body.
const maxRunBody = 1 << 20

// RunProbe starts a diagnostic run in the background. The body may carry
// credentials; otherwise the server's own are used.
func (s *Server) RunProbe(w http.ResponseWriter, r *http.Request) {
	var creds models.Credentials
	body := http.MaxBytesReader(w, r.Body, maxRunBody)
	if err := json.NewDecoder(body).Decode(&creds); err != nil && !errors.Is(err, io.EOF) {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			writeError(w, http.StatusRequestEntityTooLarge, "request body too large")
			return
		}
		writeError(w, http.StatusBadRequest, "invalid JSON: "+err.Error())
		return
	}
	if creds.Username == "" && creds.Password == "" && s.Credentials != nil {
		creds = s.Credentials()
	}

	job := s.Jobs.Create()
	runner := s.NewRunner()
	runner.Out = job.Writer()

	ctx := s.BaseContext
	if ctx == nil {
		ctx = context.Background()
	}
	log := s.logger().With(zap.String("job_id", job.ID), zap.String("user", logging.Redact(creds.Username)))
	runner.Logger = log

	s.jobs.Add(1)
	go func() {
		defer s.jobs.Done()
		log.Info("probe started")
		res := runner.Run(ctx, creds)
		if res.OK() {
			job.Complete(res.Summary())
		} else {
			job.Fail(res.Err.Error(), res.Summary())
		}
		log.Info("probe finished", zap.String("stage", string(res.Stage)), zap.String("category", string(res.Category())))
	}()

	writeJSON(w, http.StatusAccepted, map[string]string{"job_id": job.ID})
}

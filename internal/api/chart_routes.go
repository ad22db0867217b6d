package api

import (
	"bytes"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"go.uber.org/zap"

	"ForecastChart/internal/canvas"
	"ForecastChart/internal/chart"
	"ForecastChart/internal/model"
	"ForecastChart/internal/service"
)

func (s *Server) handleChart(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()

	var opts service.RenderOptions
	var err error
	if v := q.Get("format"); v != "" {
		if opts.Format, err = canvas.ParseFormat(v); err != nil {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
	}
	if v := q.Get("mode"); v != "" {
		opts.Mode = model.Mode(v)
		if !opts.Mode.Valid() {
			writeError(w, http.StatusBadRequest, "invalid mode")
			return
		}
	}
	if opts.Width, err = parseBounded(r, "width", maxChartSidePx); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if opts.Height, err = parseBounded(r, "height", maxChartSidePx); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if opts.PixelRatio, err = parseBounded(r, "dpr", maxPixelRatio); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	var buf bytes.Buffer
	out, err := s.svc.RenderChart(&buf, opts)
	if err != nil {
		if errors.Is(err, chart.ErrInvalidMode) {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		s.log.Error("render chart", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "render failed")
		return
	}

	w.Header().Set("Content-Type", out.Format.ContentType())
	w.Header().Set("Cache-Control", "no-store")
	w.Header().Set("X-Chart-Mode", string(out.Mode))
	w.Header().Set("X-Chart-Points", strconv.Itoa(out.TotalPoints))
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(buf.Bytes())
}

func (s *Server) handleSetMode(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Mode model.Mode `json:"mode"`
	}
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxRequestBytes)).Decode(&body); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if err := s.svc.SetMode(body.Mode); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"mode": string(body.Mode)})
}

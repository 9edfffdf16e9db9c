package web

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"sort"
	"strings"

	"rcheck/internal/config"
	"rcheck/internal/pipeline"
	"rcheck/internal/progress"
	"rcheck/internal/segment"
	"rcheck/pkg/utils"
)

// CheckRequest starts a batch check. Zero fields fall back to the server config.
type CheckRequest struct {
	Files     []string `json:"files"`
	Directory string   `json:"directory,omitempty"`
	Recursive bool     `json:"recursive,omitempty"`
	Providers []string `json:"providers,omitempty"`
	Time      string   `json:"time,omitempty"`
	Threads   int      `json:"threads,omitempty"`
}

type OutcomeResponse struct {
	File       string `json:"file"`
	Path       string `json:"path"`
	Provider   string `json:"provider"`
	Status     string `json:"status"`
	Service    string `json:"service"`
	Confidence string `json:"confidence,omitempty"`
	TagTitle   string `json:"tag_title,omitempty"`
	TagArtist  string `json:"tag_artist,omitempty"`
}

type ActiveResponse struct {
	Worker   int    `json:"worker"`
	File     string `json:"file"`
	Provider string `json:"provider"`
}

type SummaryResponse struct {
	Total       int `json:"total"`
	Copyrighted int `json:"copyrighted"`
	Free        int `json:"free"`
	Unknown     int `json:"unknown"`
}

type JobResponse struct {
	ID          string            `json:"id"`
	Files       int               `json:"files"`
	Providers   []string          `json:"providers"`
	Status      JobStatus         `json:"status"`
	Progress    int               `json:"progress"`
	Total       int               `json:"total"`
	Outcomes    []OutcomeResponse `json:"outcomes"`
	Active      []ActiveResponse  `json:"active,omitempty"`
	Summary     SummaryResponse   `json:"summary"`
	Error       string            `json:"error,omitempty"`
	CreatedAt   string            `json:"created_at"`
	StartedAt   *string           `json:"started_at,omitempty"`
	CompletedAt *string           `json:"completed_at,omitempty"`
}

func (s *Server) handleCheck(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	var req CheckRequest
	if err := json.NewDecoder(io.LimitReader(r.Body, 1<<20)).Decode(&req); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	jobConfig := s.config
	if len(req.Providers) > 0 {
		jobConfig.Providers = req.Providers
	}
	if req.Time != "" {
		jobConfig.Time = req.Time
	}
	if req.Threads > 0 {
		jobConfig.Workers = req.Threads
	}
	if err := jobConfig.Validate(); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	files := append([]string(nil), req.Files...)
	if req.Directory != "" {
		found, err := utils.FindAudioFiles(config.ExpandHome(req.Directory), jobConfig.Extensions, req.Recursive)
		if err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		files = append(files, found...)
	}
	if len(files) == 0 {
		http.Error(w, "files or directory is required", http.StatusBadRequest)
		return
	}

	kinds, _ := jobConfig.Kinds()
	job := s.jobMgr.CreateJob(files, jobConfig, len(files)*len(kinds))
	s.logger.Info("Created job %s: %d files, providers %v", job.ID, len(files), jobConfig.Providers)

	go s.processJob(job)

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusAccepted)
	json.NewEncoder(w).Encode(s.jobToResponse(job))
}

func (s *Server) handleListJobs(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	jobs := s.jobMgr.ListJobs()
	responses := make([]*JobResponse, len(jobs))
	for i, job := range jobs {
		responses[i] = s.jobToResponse(job)
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(responses)
}

func (s *Server) handleJobAction(w http.ResponseWriter, r *http.Request) {
	// Extract job ID from path: /api/jobs/{id} or /api/jobs/{id}/cancel
	path := strings.TrimPrefix(r.URL.Path, "/api/jobs/")
	parts := strings.Split(path, "/")
	if len(parts) == 0 || parts[0] == "" {
		http.Error(w, "Job ID required", http.StatusBadRequest)
		return
	}

	jobID := parts[0]

	// Handle GET /api/jobs/{id}
	if r.Method == http.MethodGet && len(parts) == 1 {
		job, err := s.jobMgr.GetJob(jobID)
		if err != nil {
			http.Error(w, err.Error(), http.StatusNotFound)
			return
		}

		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(s.jobToResponse(job))
		return
	}

	// Handle POST /api/jobs/{id}/cancel
	if r.Method == http.MethodPost && len(parts) == 2 && parts[1] == "cancel" {
		job, err := s.jobMgr.Cancel(jobID)
		if err != nil {
			http.Error(w, err.Error(), http.StatusNotFound)
			return
		}
		s.logger.Info("Cancel requested for job %s", jobID)

		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]string{"status": string(job.Status)})
		return
	}

	http.Error(w, "Invalid request", http.StatusBadRequest)
}

func (s *Server) processJob(job *Job) {
	ctx, cancel := context.WithCancel(s.ctx)
	defer cancel()

	if !s.jobMgr.Start(job.ID, cancel) {
		return
	}

	s.logger.Info("Starting job %s", job.ID)
	log := s.logger.Named(job.ID)
	cfg := job.Config

	fail := func(err error) {
		log.Error("%v", err)
		s.jobMgr.Finish(job.ID, StatusFailed, err)
	}

	tmpDir, err := utils.CreateTempDir(cfg.TempDir)
	if err != nil {
		fail(err)
		return
	}
	defer utils.Cleanup(tmpDir)

	providers, err := s.Providers(cfg)
	if err != nil {
		fail(err)
		return
	}

	trim, _ := cfg.Trim()
	p := &pipeline.Pipeline{
		Preparer:  segment.New(cfg.Tools.FFmpeg, cfg.Tools.FFprobe, tmpDir, log.Named("segment")),
		Providers: providers,
		Reporter:  progress.NewWithMode(io.Discard, false),
		Logger:    log,
		Workers:   cfg.Workers,
		Trim:      trim,
		Hooks: pipeline.Hooks{
			OnTaskStart: func(worker int, t pipeline.Task) {
				s.jobMgr.StartTask(job.ID, worker, t)
			},
			OnResult: func(o pipeline.Outcome) {
				s.jobMgr.AddOutcome(job.ID, o)
			},
		},
	}

	outcomes := p.Run(ctx, job.Files)

	if ctx.Err() != nil {
		s.jobMgr.Finish(job.ID, StatusCancelled, nil)
		s.logger.Info("Job %s cancelled after %d results", job.ID, len(outcomes))
		return
	}

	s.jobMgr.Finish(job.ID, StatusCompleted, nil)
	s.logger.Info("Job %s completed: %s", job.ID, pipeline.Summarize(outcomes))
}

func (s *Server) jobToResponse(job *Job) *JobResponse {
	sum := pipeline.Summarize(job.Outcomes)
	resp := &JobResponse{
		ID:        job.ID,
		Files:     len(job.Files),
		Providers: job.Config.Providers,
		Status:    job.Status,
		Progress:  job.Progress(),
		Total:     job.Total,
		Outcomes:  make([]OutcomeResponse, len(job.Outcomes)),
		Summary: SummaryResponse{
			Total:       sum.Total,
			Copyrighted: sum.Copyrighted,
			Free:        sum.Free,
			Unknown:     sum.Unknown,
		},
		Error:     job.Error,
		CreatedAt: job.CreatedAt.Format("2006-01-02 15:04:05"),
	}

	for i, o := range job.Outcomes {
		resp.Outcomes[i] = OutcomeResponse{
			File:       o.File,
			Path:       o.Path,
			Provider:   string(o.Provider),
			Status:     o.Result.Status.Code(),
			Service:    o.Result.Service,
			Confidence: o.Result.Confidence,
			TagTitle:   o.Title,
			TagArtist:  o.Artist,
		}
	}

	for _, a := range job.Active {
		resp.Active = append(resp.Active, ActiveResponse{
			Worker:   a.Worker,
			File:     a.File,
			Provider: string(a.Provider),
		})
	}
	sort.Slice(resp.Active, func(i, j int) bool {
		return resp.Active[i].Worker < resp.Active[j].Worker
	})

	if job.StartedAt != nil {
		started := job.StartedAt.Format("2006-01-02 15:04:05")
		resp.StartedAt = &started
	}

	if job.CompletedAt != nil {
		completed := job.CompletedAt.Format("2006-01-02 15:04:05")
		resp.CompletedAt = &completed
	}

	return resp
}

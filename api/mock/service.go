// Package mock implements an in-process fake of the compute service's
// REST surface: the token grant, the signed-URL storage protocol, and
// the queue-scoped job endpoints. Integration tests run the client
// against it, and `flowctl mock-server` serves it for local
// development against no real backend.
package mock

import (
	"crypto/md5"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync"

	"flow-client/core/jobspec"
	"flow-client/core/models"

	"github.com/google/uuid"
	"github.com/gorilla/mux"
)

// outputSpaceID is the space the fake executor writes artifacts into
const outputSpaceID = "scratch:@default"

type pendingUpload struct {
	resourceID string
	data       []byte
	etag       string
}

type mockJob struct {
	doc     jobspec.Job
	queueID string
	reads   int
	status  models.JobStatus
	logs    []models.ArtifactRecord
	outputs []models.ArtifactRecord
}

// Service is the fake remote service. All state is in memory.
type Service struct {
	router *mux.Router

	clientID     string
	clientSecret string

	// FinalStatus is the terminal status every job eventually reports.
	// Defaults to SUCCEEDED; tests set FAILED or CANCELED as needed.
	FinalStatus models.JobStatus

	// StatusReadsUntilTerminal is how many status reads a job spends in
	// non-terminal states before settling
	StatusReadsUntilTerminal int

	mu       sync.Mutex
	token    string
	uploads  map[string]*pendingUpload
	blobs    map[string][]byte
	jobs     map[string]*mockJob
	jobOrder []string
}

// NewService creates a fake service accepting the given credentials
func NewService(clientID, clientSecret string) *Service {
	s := &Service{
		clientID:                 clientID,
		clientSecret:             clientSecret,
		FinalStatus:              models.JobStatusSucceeded,
		StatusReadsUntilTerminal: 2,
		uploads:                  make(map[string]*pendingUpload),
		blobs:                    make(map[string][]byte),
		jobs:                     make(map[string]*mockJob),
	}
	s.router = s.routes()
	return s
}

func (s *Service) routes() *mux.Router {
	r := mux.NewRouter()

	r.HandleFunc("/authentication/v2/token", s.handleToken).Methods("POST")

	storage := r.PathPrefix("/flow/storage/v1").Subrouter()
	storage.HandleFunc("/spaces/{space}/resources/{resource}/upload-urls", s.authed(s.handleUploadURLs)).Methods("GET")
	storage.HandleFunc("/spaces/{space}/uploads:complete", s.authed(s.handleCompleteUpload)).Methods("POST")
	storage.HandleFunc("/spaces/{space}/resources/{resource}/download-url", s.authed(s.handleDownloadURL)).Methods("GET")

	compute := r.PathPrefix("/flow/compute/v1").Subrouter()
	compute.HandleFunc("/queues/{queue}/jobs", s.authed(s.handleSubmitJob)).Methods("POST")
	compute.HandleFunc("/queues/{queue}/jobs", s.authed(s.handleListJobs)).Methods("GET")
	compute.HandleFunc("/queues/{queue}/jobs/{id}", s.authed(s.handleGetJob)).Methods("GET")
	compute.HandleFunc("/queues/{queue}/jobs/{id}/logs", s.authed(s.handleListLogs)).Methods("GET")
	compute.HandleFunc("/queues/{queue}/jobs/{id}/outputs", s.authed(s.handleListOutputs)).Methods("GET")

	// signed endpoints carry no bearer token
	r.HandleFunc("/signed/uploads/{upload}", s.handleSignedPut).Methods("PUT")
	r.HandleFunc("/signed/downloads/{space}/{resource}", s.handleSignedGet).Methods("GET")

	return r
}

// ServeHTTP implements http.Handler
func (s *Service) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

// ExpireToken invalidates the current token so the next authorized
// call is rejected with a 401. Used to exercise re-authentication.
func (s *Service) ExpireToken() {
	s.mu.Lock()
	s.token = ""
	s.mu.Unlock()
}

// JobCount returns the number of jobs ever submitted
func (s *Service) JobCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.jobs)
}

func (s *Service) handleToken(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		http.Error(w, "malformed form body", http.StatusBadRequest)
		return
	}
	if r.PostFormValue("grant_type") != "client_credentials" {
		http.Error(w, "unsupported grant type", http.StatusBadRequest)
		return
	}
	if r.PostFormValue("client_id") != s.clientID || r.PostFormValue("client_secret") != s.clientSecret {
		http.Error(w, "invalid client credentials", http.StatusUnauthorized)
		return
	}

	s.mu.Lock()
	s.token = uuid.New().String()
	token := s.token
	s.mu.Unlock()

	writeJSON(w, models.TokenResponse{AccessToken: token, TokenType: "Bearer", ExpiresIn: 3600})
}

// authed rejects requests whose bearer token is not the current one
func (s *Service) authed(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		s.mu.Lock()
		token := s.token
		s.mu.Unlock()

		got := strings.TrimPrefix(r.Header.Get("Authorization"), "Bearer ")
		if token == "" || got != token {
			http.Error(w, "invalid or expired token", http.StatusUnauthorized)
			return
		}
		next(w, r)
	}
}

func (s *Service) handleUploadURLs(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	uploadID := uuid.New().String()

	s.mu.Lock()
	s.uploads[uploadID] = &pendingUpload{resourceID: vars["resource"]}
	s.mu.Unlock()

	writeJSON(w, models.UploadURLs{
		URLs:   []models.SignedURL{{URL: baseURL(r) + "/signed/uploads/" + uploadID}},
		Upload: models.UploadTransaction{ID: uploadID, ResourceID: vars["resource"]},
	})
}

func (s *Service) handleSignedPut(w http.ResponseWriter, r *http.Request) {
	uploadID := mux.Vars(r)["upload"]

	data, err := io.ReadAll(r.Body)
	if err != nil {
		http.Error(w, "reading upload body", http.StatusBadRequest)
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	up, ok := s.uploads[uploadID]
	if !ok {
		http.Error(w, "unknown upload", http.StatusNotFound)
		return
	}
	up.data = data
	up.etag = fmt.Sprintf("%x", md5.Sum(data))
	w.Header().Set("Etag", up.etag)
	w.WriteHeader(http.StatusOK)
}

func (s *Service) handleCompleteUpload(w http.ResponseWriter, r *http.Request) {
	space := mux.Vars(r)["space"]

	var req models.CompleteUpload
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "malformed completion body", http.StatusBadRequest)
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	up, ok := s.uploads[req.UploadID]
	if !ok {
		http.Error(w, "unknown upload id", http.StatusNotFound)
		return
	}
	if len(req.Parts) != 1 || req.Parts[0].Etag != up.etag {
		http.Error(w, "etag mismatch", http.StatusBadRequest)
		return
	}

	s.blobs[blobKey(space, req.ResourceID)] = up.data
	delete(s.uploads, req.UploadID)

	writeJSON(w, models.UploadResult{URN: "urn:mock:" + space + ":" + req.ResourceID})
}

func (s *Service) handleDownloadURL(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)

	s.mu.Lock()
	_, ok := s.blobs[blobKey(vars["space"], vars["resource"])]
	s.mu.Unlock()
	if !ok {
		http.Error(w, "no such resource", http.StatusNotFound)
		return
	}

	writeJSON(w, models.DownloadURL{
		URL: baseURL(r) + "/signed/downloads/" + vars["space"] + "/" + vars["resource"],
	})
}

func (s *Service) handleSignedGet(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)

	s.mu.Lock()
	data, ok := s.blobs[blobKey(vars["space"], vars["resource"])]
	s.mu.Unlock()
	if !ok {
		http.Error(w, "no such resource", http.StatusNotFound)
		return
	}
	w.Write(data)
}

func (s *Service) handleSubmitJob(w http.ResponseWriter, r *http.Request) {
	var doc jobspec.Job
	if err := json.NewDecoder(r.Body).Decode(&doc); err != nil {
		http.Error(w, "malformed job description", http.StatusBadRequest)
		return
	}
	if len(doc.Tasks) == 0 {
		http.Error(w, "job has no tasks", http.StatusBadRequest)
		return
	}

	id := uuid.New().String()
	s.mu.Lock()
	s.jobs[id] = &mockJob{
		doc:     doc,
		queueID: mux.Vars(r)["queue"],
		status:  models.JobStatusSubmitted,
	}
	s.jobOrder = append(s.jobOrder, id)
	s.mu.Unlock()

	writeJSON(w, models.SubmitResult{ID: id})
}

func (s *Service) handleListJobs(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	list := models.JobList{Results: make([]models.Job, 0, len(s.jobOrder))}
	for _, id := range s.jobOrder {
		j := s.jobs[id]
		list.Results = append(list.Results, models.Job{
			ID:      id,
			Name:    j.doc.Name,
			Status:  j.status,
			Tags:    j.doc.Tags,
			QueueID: j.queueID,
		})
	}
	s.mu.Unlock()

	writeJSON(w, list)
}

func (s *Service) handleGetJob(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]

	s.mu.Lock()
	j, ok := s.jobs[id]
	if ok {
		s.advance(id, j)
	}
	var out models.Job
	if ok {
		out = models.Job{ID: id, Name: j.doc.Name, Status: j.status, Tags: j.doc.Tags, QueueID: j.queueID}
	}
	s.mu.Unlock()

	if !ok {
		http.Error(w, "no such job", http.StatusNotFound)
		return
	}
	writeJSON(w, out)
}

// advance moves a job through SUBMITTED -> RUNNING -> FinalStatus as
// its status is read, materializing artifacts when it settles.
// Callers hold s.mu.
func (s *Service) advance(id string, j *mockJob) {
	if j.status.IsTerminal() {
		return
	}
	j.reads++
	switch {
	case j.reads < s.StatusReadsUntilTerminal:
		j.status = models.JobStatusRunning
	default:
		j.status = s.FinalStatus
		if j.status == models.JobStatusSucceeded {
			s.materializeArtifacts(id, j)
		}
	}
}

// materializeArtifacts creates the blobs and records a finished job
// exposes: one stdout log per task, plus every output the task's
// execution mapping declares. Callers hold s.mu.
func (s *Service) materializeArtifacts(id string, j *mockJob) {
	for i, task := range j.doc.Tasks {
		logRes := fmt.Sprintf("%s-task%d-stdout.log", id, i)
		logPath := fmt.Sprintf("task%d/stdout.log", i)
		s.blobs[blobKey(outputSpaceID, logRes)] = []byte("mock execution log for " + task.Name + "\n")
		j.logs = append(j.logs, models.ArtifactRecord{
			SpaceID:    outputSpaceID,
			ResourceID: logRes,
			Path:       logPath,
		})

		for _, name := range declaredOutputs(task) {
			res := id + "-" + name
			s.blobs[blobKey(outputSpaceID, res)] = []byte("mock output " + name + "\n")
			j.outputs = append(j.outputs, models.ArtifactRecord{
				SpaceID:    outputSpaceID,
				ResourceID: res,
				Path:       name,
			})
		}
	}
}

// declaredOutputs walks a task payload's executions for the output
// names its mapping declares. Unknown payload shapes yield none.
func declaredOutputs(task jobspec.Task) []string {
	var names []string
	executions, _ := task.Payload["executions"].([]any)
	for _, e := range executions {
		exec, _ := e.(map[string]any)
		outputs, _ := exec["outputs"].([]any)
		for _, o := range outputs {
			out, _ := o.(map[string]any)
			target, _ := out["target"].(map[string]any)
			if name, _ := target["name"].(string); name != "" {
				names = append(names, name)
			}
		}
	}
	return names
}

func (s *Service) handleListLogs(w http.ResponseWriter, r *http.Request) {
	s.listArtifacts(w, r, func(j *mockJob) []models.ArtifactRecord { return j.logs })
}

func (s *Service) handleListOutputs(w http.ResponseWriter, r *http.Request) {
	s.listArtifacts(w, r, func(j *mockJob) []models.ArtifactRecord { return j.outputs })
}

func (s *Service) listArtifacts(w http.ResponseWriter, r *http.Request, pick func(*mockJob) []models.ArtifactRecord) {
	id := mux.Vars(r)["id"]

	s.mu.Lock()
	j, ok := s.jobs[id]
	var records []models.ArtifactRecord
	if ok {
		records = append(records, pick(j)...)
	}
	s.mu.Unlock()

	if !ok {
		http.Error(w, "no such job", http.StatusNotFound)
		return
	}
	if records == nil {
		records = []models.ArtifactRecord{}
	}
	writeJSON(w, models.ArtifactList{Results: records})
}

func blobKey(space, resource string) string {
	return space + "/" + resource
}

// baseURL rebuilds the absolute address signed URLs must point at
func baseURL(r *http.Request) string {
	scheme := "http"
	if r.TLS != nil {
		scheme = "https"
	}
	return scheme + "://" + r.Host
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(v)
}

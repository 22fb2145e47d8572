package health

import "context"

// Status represents the aggregated health status.
type Status string

const (
	// Healthy indicates all components are operational.
	Healthy Status = "ok"
	// Degraded indicates partial failure.
	Degraded Status = "degraded"
	// Unhealthy indicates the service cannot classify documents.
	Unhealthy Status = "error"
)

// CheckResult represents an individual component health check outcome.
type CheckResult string

const (
	// CheckOK indicates a passing health check.
	CheckOK CheckResult = "ok"
	// CheckError indicates a failing health check.
	CheckError CheckResult = "error"
)

// Report aggregates health check results.
type Report struct {
	Status    Status
	Checks    map[string]CheckResult
	Documents int
}

// Service coordinates health checks.
type Service struct {
	cache     CachePinger
	embedding ProviderChecker
	llm       ProviderChecker
	corpus    Corpus
}

// New creates a Service. Any dependency can be nil; nil components are not reported.
func New(cache CachePinger, embedding, llm ProviderChecker, corpus Corpus) *Service {
	return &Service{cache: cache, embedding: embedding, llm: llm, corpus: corpus}
}

// Check runs health checks against all components.
// An empty corpus makes the service unhealthy; any other failure degrades it.
func (s *Service) Check(ctx context.Context) Report {
	checks := make(map[string]CheckResult)

	if s.cache != nil {
		checks["cache"] = result(s.cache.Ping(ctx))
	}
	if s.embedding != nil {
		checks["embedding"] = result(s.embedding.HealthCheck(ctx))
	}
	if s.llm != nil {
		checks["llm"] = result(s.llm.HealthCheck(ctx))
	}

	status := Healthy
	for _, v := range checks {
		if v == CheckError {
			status = Degraded
			break
		}
	}

	var docs int
	if s.corpus != nil {
		docs = s.corpus.Len()
		if docs == 0 {
			checks["corpus"] = CheckError
			status = Unhealthy
		} else {
			checks["corpus"] = CheckOK
		}
	}

	return Report{Status: status, Checks: checks, Documents: docs}
}

func result(err error) CheckResult {
	if err != nil {
		return CheckError
	}
	return CheckOK
}

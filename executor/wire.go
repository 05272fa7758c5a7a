package executor

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/weiihann/benchoor/workload"
)

// WorkRequest is the unit of work sent to a process-parallel child over
// stdin. The range is half-open: [Start, End).
type WorkRequest struct {
	Task  string `json:"task"`
	Start int64  `json:"start"`
	End   int64  `json:"end"`
}

// WorkResponse is the child's reply on stdout. Error is set instead of
// Sum when the request could not be served.
type WorkResponse struct {
	Sum   int64  `json:"sum"`
	Error string `json:"error,omitempty"`
}

// Handle services one work request against the registry. It never
// panics; malformed requests come back as an Error response so the
// parent can fail the repetition cleanly.
func Handle(reg *workload.Registry, req WorkRequest) WorkResponse {
	task, ok := reg.Lookup(req.Task)
	if !ok {
		return WorkResponse{Error: fmt.Sprintf("unknown task %q", req.Task)}
	}

	if task.Partial == nil {
		return WorkResponse{
			Error: fmt.Sprintf("task %q is not partitionable", req.Task),
		}
	}

	if req.Start < 0 || req.End < req.Start {
		return WorkResponse{
			Error: fmt.Sprintf("invalid range [%d, %d)", req.Start, req.End),
		}
	}

	return WorkResponse{Sum: task.Partial(req.Start, req.End)}
}

// RunWorker is the entry point for process-parallel children: it decodes
// a single request from r, executes it, and writes the response to w.
func RunWorker(reg *workload.Registry, r io.Reader, w io.Writer) error {
	var req WorkRequest
	if err := json.NewDecoder(r).Decode(&req); err != nil {
		return fmt.Errorf("decode work request: %w", err)
	}

	resp := Handle(reg, req)

	if err := json.NewEncoder(w).Encode(resp); err != nil {
		return fmt.Errorf("encode work response: %w", err)
	}

	return nil
}

// splitRange divides [0, total) into at most workers contiguous ranges,
// front-loading the remainder.
func splitRange(total int64, workers int) [][2]int64 {
	if workers < 1 {
		workers = 1
	}

	chunk := total / int64(workers)
	rem := total % int64(workers)

	ranges := make([][2]int64, 0, workers)

	var start int64

	for i := 0; i < workers; i++ {
		size := chunk
		if int64(i) < rem {
			size++
		}

		if size == 0 {
			continue
		}

		ranges = append(ranges, [2]int64{start, start + size})
		start += size
	}

	return ranges
}

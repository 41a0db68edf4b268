// Package process resolves worker identities to backend module invocations
// and launches them as managed OS processes.
package process

import (
	"errors"
	"fmt"
)

// Worker is a logical identity for one backend process. The mapping from
// identity to module is a closed enumeration fixed at compile time; an
// unrecognized value is a programming error, not a runtime condition.
type Worker int

const (
	WorkerResearch Worker = iota
	WorkerTrading
	WorkerNews

	// WorkerServer is the API server. It launches last, after every
	// agent worker.
	WorkerServer
)

// Workers lists every process StartAll launches, in launch order: agent
// workers first, the server last.
var Workers = []Worker{WorkerResearch, WorkerTrading, WorkerNews, WorkerServer}

// ErrUnknownWorker reports a worker value outside the closed enumeration.
var ErrUnknownWorker = errors.New("unknown worker identity")

// String returns the worker's identity name, also used for its log file.
func (w Worker) String() string {
	switch w {
	case WorkerResearch:
		return "research-agent"
	case WorkerTrading:
		return "trading-agent"
	case WorkerNews:
		return "news-agent"
	case WorkerServer:
		return "backend-server"
	default:
		return fmt.Sprintf("worker(%d)", int(w))
	}
}

// Module resolves the worker to its backend module path.
func (w Worker) Module() (string, error) {
	switch w {
	case WorkerResearch:
		return "backend.agents.research", nil
	case WorkerTrading:
		return "backend.agents.trading", nil
	case WorkerNews:
		return "backend.agents.news", nil
	case WorkerServer:
		return "backend.server.main", nil
	default:
		return "", fmt.Errorf("%w: %d", ErrUnknownWorker, int(w))
	}
}

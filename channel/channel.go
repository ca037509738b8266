// Package channel carries existence questions from the process rewriting a
// document to the process allowed to fetch the alternate site.
//
// A request is {"action":"checkExistence","candidateUrl":"..."} and is always
// answered by exactly one {"exists":bool}.
package channel

import (
	"context"

	"github.com/chrisvdg/linkswap/checker"
	log "github.com/sirupsen/logrus"
)

// ActionCheckExistence asks whether a candidate URL exists
const ActionCheckExistence = "checkExistence"

// Request represents a message sent over the channel
type Request struct {
	Action       string `json:"action"`
	CandidateURL string `json:"candidateUrl"`
}

// Response represents the answer to a Request
type Response struct {
	Exists bool `json:"exists"`
}

// Dispatch answers req using c
// Unknown actions and panicking checkers are answered with exists=false.
func Dispatch(ctx context.Context, c checker.Checker, req Request) (resp Response) {
	defer func() {
		if r := recover(); r != nil {
			log.Errorf("existence check for %s panicked: %v", req.CandidateURL, r)
			resp = Response{}
		}
	}()

	switch req.Action {
	case ActionCheckExistence:
		if req.CandidateURL == "" {
			return Response{}
		}
		return Response{Exists: c.Exists(ctx, req.CandidateURL)}
	default:
		log.Debugf("no handler for action %q", req.Action)
		return Response{}
	}
}

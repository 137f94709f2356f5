package contracts

import (
	"context"

	"github.com/julienschmidt/httprouter"
)

type Handler interface {
	RegisterRoutes(*httprouter.Router)
}

// Worker runs in the background for the lifetime of the process. Run blocks
// until ctx is cancelled; Stop releases whatever Run was holding.
type Worker interface {
	Name() string
	Run(ctx context.Context) error
	Stop(ctx context.Context) error
}

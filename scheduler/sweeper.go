package scheduler

import (
	"context"
	"log"
)

type TokenSweep interface {
	SweepExpired(ctx context.Context) (int64, error)
}

// Sweeper bounds refresh-token store growth by deleting expired rows.
type Sweeper struct {
	tokens TokenSweep
}

func NewSweeper(tokens TokenSweep) *Sweeper {
	return &Sweeper{tokens: tokens}
}

func (s *Sweeper) Run() {
	n, err := s.tokens.SweepExpired(context.Background())
	if err != nil {
		log.Printf("token sweep failed: %v", err)
		return
	}
	if n > 0 {
		log.Printf("token sweep removed %d expired sessions", n)
	}
}

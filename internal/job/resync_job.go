package job

import (
	"context"

	"github.com/xxxsen/common/logutil"
	"go.uber.org/zap"

	"github.com/xxxsen/justnotes/internal/session"
)

// ResyncJob reloads every ready session from its backend.
type ResyncJob struct {
	sessions *session.Manager
}

func NewResyncJob(sessions *session.Manager) *ResyncJob {
	return &ResyncJob{sessions: sessions}
}

func (j *ResyncJob) Name() string {
	return "resync"
}

func (j *ResyncJob) Run(ctx context.Context) error {
	if j.sessions == nil {
		return nil
	}
	var failed int
	for _, s := range j.sessions.Ready() {
		if err := j.sessions.Sync(ctx, s); err != nil {
			failed++
			logutil.GetLogger(ctx).Warn("resync session failed",
				zap.String("session_id", s.ID),
				zap.String("email", s.Principal.Email),
				zap.Error(err),
			)
		}
	}
	if failed > 0 {
		logutil.GetLogger(ctx).Info("resync finished with failures", zap.Int("failed", failed))
	}
	return nil
}

package job

import (
	"context"

	"github.com/xxxsen/common/logutil"
	"go.uber.org/zap"
)

type OTPPurger interface {
	PurgeExpired(ctx context.Context) (int64, error)
}

// OTPCleanupJob removes expired OTPs so their emails can request a new
// code.
type OTPCleanupJob struct {
	otps OTPPurger
}

func NewOTPCleanupJob(otps OTPPurger) *OTPCleanupJob {
	return &OTPCleanupJob{otps: otps}
}

func (j *OTPCleanupJob) Name() string {
	return "otp_cleanup"
}

func (j *OTPCleanupJob) Run(ctx context.Context) error {
	removed, err := j.otps.PurgeExpired(ctx)
	if err != nil {
		return err
	}
	if removed > 0 {
		logutil.GetLogger(ctx).Info("expired otps removed", zap.Int64("count", removed))
	}
	return nil
}

package scheduler

import (
	"os"
	"testing"

	"github.com/davidmcguire/audio-app/internal/logger"
)

func TestMain(m *testing.M) {
	logger.Init("error")
	os.Exit(m.Run())
}

package config

import (
	"fmt"

	"github.com/verte-zerg/sayit/internal/capture"
	"github.com/verte-zerg/sayit/internal/dataset"
	"github.com/verte-zerg/sayit/internal/model"
)

// DefaultAddr is the listen address of `sayit serve`.
const DefaultAddr = "127.0.0.1:5000"

// DefaultTemplate returns the commented config written by `sayit config`.
func DefaultTemplate() string {
	p := model.DefaultPolicy()
	pace := model.DefaultPacing()
	f := capture.DefaultFormat()
	return fmt.Sprintf(`# sayit configuration
# Uncomment a value to enable it. CLI flags override config values.

[log]
# level = "info"              # debug, info, warn or error

[server]
# addr = %q      # Listen address for sayit serve
# db = %q

[policy]
# max-attempts = %d            # Attempts per prompt
# threshold = %.2f             # Minimum similarity to accept an utterance (0-1)
# listen-window = %.1f         # Seconds to wait for an utterance
# poll-interval = %.1f         # Seconds between frame buffer polls

[pacing]
# Seconds to pause after each event so clients can render it.
# after-prompt = %.1f
# after-timeout = %.1f
# after-correct = %.1f
# after-incorrect = %.1f
# after-failed = %.1f

[audio]
# sample-rate = %d
# channels = %d
# period-frames = %d

[models]
# Recognizer model directory per language code. Relative paths resolve
# against %s.
# en = "vosk-model-small-en-us-0.15"
# hi = "vosk-model-small-hi-0.22"

[datasets]
# dir = %q
# sample-size = %d              # Prompts per session
# fallback = false              # Use built-in sample words when a file is missing
`,
		DefaultAddr,
		DefaultDBPath(),
		p.MaxAttempts,
		p.Threshold,
		p.ListenWindow.Seconds(),
		p.PollInterval.Seconds(),
		pace.AfterPrompt.Seconds(),
		pace.AfterTimeout.Seconds(),
		pace.AfterCorrect.Seconds(),
		pace.AfterIncorrect.Seconds(),
		pace.AfterFailed.Seconds(),
		f.SampleRate,
		f.Channels,
		f.PeriodFrames,
		DefaultModelsDir(),
		DefaultDatasetDir(),
		dataset.DefaultSampleSize,
	)
}

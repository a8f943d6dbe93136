package screen

import (
	"fmt"
	"os"
	"runtime"
	"strings"
)

// Environment describes the capture backend the recorder will use.
type Environment struct {
	Provider  string
	Available bool
	Message   string
}

const (
	// ProviderSynthetic is the built-in gradient grabber.
	ProviderSynthetic = "synthetic"
	// ProviderExternal marks a caller-supplied native grabber.
	ProviderExternal = "external"
)

// DetectEnvironment reports the backend selected for the host. A native
// grabber is wired by the embedding application; absent one, the synthetic
// grabber keeps the pipeline testable on any platform.
func DetectEnvironment() Environment {
	backend := strings.ToLower(strings.TrimSpace(os.Getenv("SESSIONTAPE_SCREEN_BACKEND")))
	switch backend {
	case "", ProviderSynthetic:
		return Environment{
			Provider:  ProviderSynthetic,
			Available: true,
			Message:   fmt.Sprintf("synthetic gradient grabber (%s)", runtime.GOOS),
		}
	default:
		return Environment{
			Provider:  ProviderExternal,
			Available: false,
			Message:   fmt.Sprintf("backend %q must be supplied by the host application", backend),
		}
	}
}

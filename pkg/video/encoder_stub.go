//go:build !cgo

package video

func newNativeEncoder(opts Options) (Encoder, error) {
	return nil, newUnavailableError("gstreamer encoder requires a cgo-enabled build")
}

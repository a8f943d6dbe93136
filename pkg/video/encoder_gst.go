//go:build cgo

package video

import (
	"fmt"
	"time"

	"github.com/tinyzimmer/go-gst/gst"
	"github.com/tinyzimmer/go-gst/gst/app"
)

// gstEncoder feeds raw RGBA frames into a GStreamer pipeline:
//
//	appsrc → videoconvert → x264enc → mp4mux → filesink
//
// Timestamps here are container timestamps derived from the frame index; the
// wall-clock schedule lives in the frame log, not in the video container.
type gstEncoder struct {
	pipeline  *gst.Pipeline
	src       *app.Source
	opts      Options
	period    time.Duration
	frameSize int
	index     int64
}

func newNativeEncoder(opts Options) (Encoder, error) {
	if opts.Format != "mp4" {
		return nil, fmt.Errorf("format %q is unsupported by the gstreamer backend", opts.Format)
	}

	gst.Init(nil)

	pipeline, err := gst.NewPipeline("")
	if err != nil {
		return nil, fmt.Errorf("create pipeline: %w", err)
	}

	appsrc, err := gst.NewElement("appsrc")
	if err != nil {
		return nil, fmt.Errorf("create appsrc: %w", err)
	}
	appsrc.SetProperty("format", int(gst.FormatTime))
	appsrc.SetProperty("block", true)

	convert, err := gst.NewElement("videoconvert")
	if err != nil {
		return nil, fmt.Errorf("create videoconvert: %w", err)
	}

	encoder, err := gst.NewElement("x264enc")
	if err != nil {
		return nil, fmt.Errorf("create x264enc: %w", err)
	}

	muxer, err := gst.NewElement("mp4mux")
	if err != nil {
		return nil, fmt.Errorf("create mp4mux: %w", err)
	}

	sink, err := gst.NewElement("filesink")
	if err != nil {
		return nil, fmt.Errorf("create filesink: %w", err)
	}
	sink.SetProperty("location", opts.Path)

	if err := pipeline.AddMany(appsrc, convert, encoder, muxer, sink); err != nil {
		return nil, fmt.Errorf("assemble pipeline: %w", err)
	}
	if err := gst.ElementLinkMany(appsrc, convert, encoder, muxer, sink); err != nil {
		return nil, fmt.Errorf("link pipeline: %w", err)
	}

	src := app.SrcFromElement(appsrc)
	src.SetCaps(gst.NewCapsFromString(fmt.Sprintf(
		"video/x-raw,format=RGBA,width=%d,height=%d,framerate=%s",
		opts.Width, opts.Height, framerateFraction(opts.FrameRate),
	)))

	if err := pipeline.SetState(gst.StatePlaying); err != nil {
		return nil, fmt.Errorf("start pipeline: %w", err)
	}

	return &gstEncoder{
		pipeline:  pipeline,
		src:       src,
		opts:      opts,
		period:    time.Duration(float64(time.Second) / opts.FrameRate),
		frameSize: opts.FrameSize(),
	}, nil
}

func (e *gstEncoder) Write(pix []byte) error {
	if len(pix) != e.frameSize {
		return fmt.Errorf("frame has %d bytes, expected %d", len(pix), e.frameSize)
	}

	buffer := gst.NewBufferFromBytes(pix)
	buffer.SetPresentationTimestamp(gst.ClockTime(time.Duration(e.index) * e.period))
	buffer.SetDuration(gst.ClockTime(e.period))

	if ret := e.src.PushBuffer(buffer); ret != gst.FlowOK {
		return fmt.Errorf("push buffer: flow %v", ret)
	}
	e.index++
	return nil
}

func (e *gstEncoder) Release() error {
	e.src.EndStream()

	bus := e.pipeline.GetPipelineBus()
	msg := bus.TimedPopFiltered(gst.ClockTimeNone, gst.MessageEOS|gst.MessageError)
	defer e.pipeline.SetState(gst.StateNull)

	if msg != nil && msg.Type() == gst.MessageError {
		return fmt.Errorf("finalize container: %s", msg.String())
	}
	return nil
}

// framerateFraction renders a GStreamer framerate fraction, preserving
// fractional rates with millifps precision.
func framerateFraction(fps float64) string {
	whole := int(fps)
	if float64(whole) == fps {
		return fmt.Sprintf("%d/1", whole)
	}
	return fmt.Sprintf("%d/1000", int(fps*1000))
}

// ABOUTME: Audio output package for playing scheduled PCM buffers
// ABOUTME: Provides the Device contract, a software Timeline and oto/malgo backends
// Package output provides the output half of the audio subsystem.
//
// A Timeline implements Device entirely in software: buffers are scheduled
// at absolute instants on an audio clock that advances as frames are
// rendered. A Backend (oto or malgo) pulls rendered PCM16 from the Timeline
// and hands it to the sound card, so the Timeline's clock tracks real
// playback.
//
// Example:
//
//	tl := output.NewTimeline(24000)
//	out := output.NewOto(tl)
//	err := out.Open()
//	buf, _ := tl.CreateBuffer(1, len(samples), 24000)
//	copy(buf.ChannelData(0), samples)
//	err = tl.ScheduleBuffer(buf, tl.CurrentTime()+0.1)
package output

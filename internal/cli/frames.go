// ABOUTME: Real-time frame loop for the record command
// ABOUTME: Ticks the looper, applies dashboard commands and reports status
package cli

import (
	"context"
	"errors"
	"log"
	"time"

	"github.com/Resonate-Protocol/resonate-capture/internal/ui"
)

const (
	dashboardInterval = 250 * time.Millisecond
	logInterval       = 5 * time.Second
)

// errEncodeFailed ends a recording whose encoder failed mid-session
var errEncodeFailed = errors.New("recording stopped after an encode failure")

// runFrames drives the looper at the configured frame interval until ctx is done,
// the user quits or the recording session ends. controls and dash may be nil.
func (p *pipeline) runFrames(ctx context.Context, interval time.Duration, controls *ui.Controls, dash *ui.Dashboard) error {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	var commands <-chan ui.Command
	if controls != nil {
		commands = controls.Commands
	}

	reportEvery := logInterval
	if dash != nil {
		reportEvery = dashboardInterval
		dash.Update(ui.StatusMsg{
			SessionID: p.recorder.SessionData().SessionID,
			Started:   time.Now(),
		})
	}

	last := time.Now()
	lastReport := last
	for {
		select {
		case <-ctx.Done():
			return nil

		case cmd := <-commands:
			if p.apply(cmd) {
				log.Printf("Quit requested from dashboard")
				return nil
			}

		case now := <-ticker.C:
			p.tick(now.Sub(last))
			last = now

			if done, err := p.sessionDone(); done {
				p.report(dash, err)
				return err
			}
			if now.Sub(lastReport) >= reportEvery {
				lastReport = now
				p.report(dash, nil)
			}
		}
	}
}

// apply handles one dashboard command on the frame goroutine and reports whether
// the user asked to quit
func (p *pipeline) apply(cmd ui.Command) bool {
	switch cmd.Kind {
	case ui.CommandQuit:
		return true
	case ui.CommandGameMute:
		p.mixer.SetGameAudioMute(cmd.On)
	case ui.CommandMicMute:
		p.mixer.SetMicrophoneMute(cmd.On)
	case ui.CommandMicActive:
		if cmd.On && !p.hasMic {
			log.Printf("Warning: no microphone device is open")
			return false
		}
		if err := p.mixer.SetMicrophoneCaptureActive(cmd.On); err != nil {
			log.Printf("Warning: %v", err)
		}
	case ui.CommandPause:
		p.recorder.SetPaused(cmd.On)
	}
	return false
}

// sessionDone reports whether the recorder has stopped, with an error when the
// looper ended it after a failure
func (p *pipeline) sessionDone() (bool, error) {
	if p.recorder.IsActive() {
		return false, nil
	}
	if p.looper.Stats().Failures > 0 {
		return true, errEncodeFailed
	}
	log.Printf("Recording session ended")
	return true, nil
}

func (p *pipeline) report(dash *ui.Dashboard, err error) {
	ms := p.mixer.Stats()
	ls := p.looper.Stats()

	if dash != nil {
		dash.Update(ui.StatusMsg{
			SessionID: p.recorder.SessionData().SessionID,
			Mixer:     &ms,
			Looper:    &ls,
			Err:       err,
		})
		return
	}

	log.Printf("Status: looper %s at %.2fs, %d frames encoded, %d blocks mixed, game %s (%+d), mic %s (%+d)",
		ls.State, ls.VideoTime, ls.EncodedFrames, ms.Blocks,
		ms.Game.Drift.Quality, ms.Game.Drift.Drift,
		ms.Microphone.Drift.Quality, ms.Microphone.Drift.Drift)
}

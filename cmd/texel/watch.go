package main

import (
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"

	"texel/internal/config"
	"texel/internal/diagfmt"
	"texel/internal/reconstruct"
	"texel/internal/source"
	"texel/internal/texlog"
	"texel/internal/ui"
)

var watchCmd = &cobra.Command{
	Use:   "watch [flags] build.log",
	Short: "Follow a growing TeX log, streaming events as they stabilize",
	Long:  `Watch tails the log file in append mode: committed events are emitted as JSON lines, or rendered live with --format tui`,
	Args:  cobra.ExactArgs(1),
	RunE:  runWatch,
}

func init() {
	watchCmd.Flags().String("format", "json", "output format (json|tui)")
	watchCmd.Flags().Duration("poll", 200*time.Millisecond, "log polling interval")
	watchCmd.Flags().String("engine", "", "engine identifier recorded in provenance")
}

func runWatch(cmd *cobra.Command, args []string) error {
	logPath := args[0]
	format, _ := cmd.Flags().GetString("format")
	poll, _ := cmd.Flags().GetDuration("poll")
	engine, _ := cmd.Flags().GetString("engine")

	cfg, err := loadConfig(cmd)
	if err != nil {
		return &exitError{code: exitInvalid, err: err}
	}

	switch format {
	case "json":
		return watchJSON(logPath, cfg, poll)
	case "tui":
		return watchTUI(logPath, cfg, poll, engine)
	default:
		return fmt.Errorf("unknown format: %s", format)
	}
}

// tail reads bytes appended to path past off. A missing file is not an
// error while waiting: build tools create the log late.
func tail(path string, off int64) ([]byte, int64, error) {
	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, off, nil
		}
		return nil, off, err
	}
	defer func() { _ = f.Close() }()

	st, err := f.Stat()
	if err != nil {
		return nil, off, err
	}
	if st.Size() < off {
		// лог пересоздан — начинаем с нуля не получится (спаны бы
		// поехали); читаем только новый хвост с нулевой позиции
		off = 0
	}
	if st.Size() == off {
		return nil, off, nil
	}
	if _, err := f.Seek(off, io.SeekStart); err != nil {
		return nil, off, err
	}
	chunk, err := io.ReadAll(f)
	if err != nil {
		return nil, off, err
	}
	return chunk, off + int64(len(chunk)), nil
}

func watchJSON(logPath string, cfg config.Config, poll time.Duration) error {
	parser := texlog.NewParser(0, cfg.Log, cfg.Analysis.ConfidenceThreshold)
	printed := 0
	var off int64

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, os.Interrupt, syscall.SIGTERM)
	defer signal.Stop(sig)

	ticker := time.NewTicker(poll)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			chunk, newOff, err := tail(logPath, off)
			if err != nil {
				return &exitError{code: exitInvalid, err: err}
			}
			off = newOff
			if len(chunk) == 0 {
				continue
			}
			parser.Update(chunk)
			// печатаем только стабилизированные события: они никогда
			// не будут переизданы
			stable := parser.StableCount()
			if stable > printed {
				if err := diagfmt.StreamEvents(os.Stdout, parser.Events()[printed:stable]); err != nil {
					return &exitError{code: exitInternal, err: err}
				}
				printed = stable
			}

		case <-sig:
			events := parser.Finish()
			if err := diagfmt.StreamEvents(os.Stdout, events[printed:]); err != nil {
				return &exitError{code: exitInternal, err: err}
			}
			return nil
		}
	}
}

func watchTUI(logPath string, cfg config.Config, poll time.Duration, engine string) error {
	updates := make(chan ui.Update, 1)
	stop := make(chan struct{})
	done := make(chan struct{})

	go func() {
		defer close(done)
		defer close(updates)
		buf := source.NewLogBuffer(0, logPath)
		defer buf.Close()
		parser := texlog.NewParser(buf.ID(), cfg.Log, cfg.Analysis.ConfidenceThreshold)
		var off int64
		ticker := time.NewTicker(poll)
		defer ticker.Stop()

		for {
			select {
			case <-stop:
				return
			case <-ticker.C:
				chunk, newOff, err := tail(logPath, off)
				if err != nil || len(chunk) == 0 {
					continue
				}
				off = newOff
				buf.Append(chunk)
				events, _ := parser.Update(chunk)
				diags := reconstruct.Diagnostics(events, buf.Bytes(), reconstruct.Options{
					Cfg:    cfg.Log,
					Engine: engine,
				})
				select {
				case updates <- ui.Update{
					Events:      append([]texlog.Event(nil), events...),
					Diagnostics: diags,
					BufferLen:   parser.Len(),
				}:
				case <-stop:
					return
				}
			}
		}
	}()

	model := ui.NewModel(logPath, updates)
	_, err := tea.NewProgram(model).Run()
	close(stop)
	<-done
	if err != nil {
		return &exitError{code: exitInternal, err: err}
	}
	return nil
}

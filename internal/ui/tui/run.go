package tui

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sync"
	"time"

	"stagecraft/internal/core/model"
	"stagecraft/internal/core/stagekeeper"

	tea "github.com/charmbracelet/bubbletea"
	"go.uber.org/zap"
)

const subscriberBuffer = 64

// Options configures a terminal session.
type Options struct {
	Refresh time.Duration
	Keeper  stagekeeper.Options
	Logger  *zap.Logger
	Input   io.Reader
	Output  io.Writer
	// Reloads delivers replacement definitions, typically from a file watch.
	Reloads <-chan Reload
}

// Reload is one result of re-reading a definition.
type Reload struct {
	Config model.SequenceConfig
	Err    error
}

// Run mounts config and drives it from the terminal until the user quits or
// ctx is cancelled. The widget is unmounted before Run returns.
func Run(ctx context.Context, config model.SequenceConfig, options Options) error {
	logger := options.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	keeper, err := stagekeeper.New(config, options.Keeper)
	if err != nil {
		return err
	}
	events := keeper.Subscribe(subscriberBuffer)
	keeper.Mount()

	programOptions := []tea.ProgramOption{tea.WithContext(ctx)}
	if options.Input != nil {
		programOptions = append(programOptions, tea.WithInput(options.Input))
	}
	if options.Output != nil {
		programOptions = append(programOptions, tea.WithOutput(options.Output))
	}
	program := tea.NewProgram(NewModel(keeper, options.Refresh), programOptions...)

	bridge := NewBridge(program)
	go bridge.Forward(events)

	// every keeper created for this session, so none outlives it
	var mu sync.Mutex
	keepers := []*stagekeeper.Keeper{keeper}
	finished := false
	track := func(next *stagekeeper.Keeper) bool {
		mu.Lock()
		defer mu.Unlock()
		if finished {
			return false
		}
		keepers = append(keepers, next)
		return true
	}

	if options.Reloads != nil {
		go func() {
			for {
				var reload Reload
				select {
				case <-ctx.Done():
					return
				case next, ok := <-options.Reloads:
					if !ok {
						return
					}
					reload = next
				}

				if reload.Err != nil {
					bridge.Error(fmt.Errorf("reload failed: %w", reload.Err))
					continue
				}
				replacement, err := stagekeeper.New(reload.Config, options.Keeper)
				if err != nil {
					logger.Warn("reloaded definition rejected", zap.Error(err))
					bridge.Error(fmt.Errorf("reload rejected: %w", err))
					continue
				}
				if !track(replacement) {
					return
				}
				replacementEvents := replacement.Subscribe(subscriberBuffer)
				replacement.Mount()
				logger.Info("definition reloaded", zap.String("sequence", reload.Config.Name))
				go bridge.Forward(replacementEvents)
				bridge.Reload(replacement)
			}
		}()
	}

	_, err = program.Run()

	mu.Lock()
	finished = true
	mounted := keepers
	mu.Unlock()
	for _, widget := range mounted {
		widget.Unmount()
	}

	if err != nil {
		if errors.Is(err, tea.ErrProgramKilled) && ctx.Err() != nil {
			return nil
		}
		return fmt.Errorf("run terminal ui: %w", err)
	}
	return nil
}

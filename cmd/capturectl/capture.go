package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"artisan-market/internal/camera"
	"artisan-market/internal/models"
	"artisan-market/internal/service/storage"
	"artisan-market/internal/verify"

	"github.com/schollz/progressbar/v3"
	"github.com/spf13/cobra"
)

// captureOptions - флаги команды capture
type captureOptions struct {
	FramesDir string
	Facing    string
	OutDir    string
	Count     int
	Interval  time.Duration
}

var captureOpts captureOptions

var captureCmd = &cobra.Command{
	Use:   "capture",
	Short: "Снять несколько кадров с камеры и сохранить принятые",
	RunE: func(cmd *cobra.Command, args []string) error {
		opts := captureOpts
		if opts.FramesDir == "" {
			opts.FramesDir = cfg.Camera.FramesDir
		}
		if opts.OutDir == "" {
			opts.OutDir = cfg.Storage.UploadsDir
		}

		dev := cfg.Camera.Device()
		dev.Dir = opts.FramesDir
		manager := camera.NewManager(camera.NewGate(dev), cfg.Camera.Settings())

		store, err := storage.NewService(opts.OutDir)
		if err != nil {
			return err
		}

		sum, err := runCapture(cmd.Context(), manager, &verify.Heuristic{}, store, opts, cmd.ErrOrStderr())
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "📸 Снято: %d, принято: %d, тёмных повторов: %d\n", sum.Taken, len(sum.Saved), sum.DarkRetries)
		for _, ref := range sum.Saved {
			fmt.Fprintf(cmd.OutOrStdout(), "   %s\n", ref)
		}
		return nil
	},
}

func init() {
	captureCmd.Flags().StringVarP(&captureOpts.FramesDir, "frames", "f", "", "Каталог кадров камеры (по умолчанию CAMERA_FRAMES_DIR)")
	captureCmd.Flags().StringVar(&captureOpts.Facing, "facing", "back", "Камера: front или back")
	captureCmd.Flags().StringVarP(&captureOpts.OutDir, "out", "o", "", "Куда сохранять принятые фото (по умолчанию UPLOADS_DIR)")
	captureCmd.Flags().IntVarP(&captureOpts.Count, "count", "n", 1, "Сколько кадров снять")
	captureCmd.Flags().DurationVar(&captureOpts.Interval, "interval", 0, "Пауза между кадрами")
	rootCmd.AddCommand(captureCmd)
}

// captureSummary - итог серии снимков
type captureSummary struct {
	Taken       int
	DarkRetries int
	Saved       []string
	Results     []models.VerificationResult
}

// frameStore сохраняет принятые кадры
type frameStore interface {
	SaveImage(data []byte, ext string) (string, error)
}

// runCapture открывает камеру, снимает Count кадров, проверяет и сохраняет принятые
func runCapture(ctx context.Context, manager *camera.Manager, verifier verify.Verifier, store frameStore, opts captureOptions, progress io.Writer) (*captureSummary, error) {
	facing, err := camera.ParseFacing(opts.Facing)
	if err != nil {
		return nil, err
	}
	if opts.Count < 1 {
		return nil, errors.New("count должен быть больше нуля")
	}

	ready, err := manager.Start(ctx, facing)
	if err != nil {
		return nil, err
	}
	defer manager.Stop()

	if ready.Blocked {
		// В терминале "жест пользователя" - это сам запуск команды
		if ready, err = manager.Resume(ctx); err != nil {
			return nil, err
		}
		if ready.Blocked {
			return nil, camera.ErrPlaybackBlocked
		}
	}

	bar := progressbar.NewOptions(opts.Count,
		progressbar.OptionSetDescription("📷 Съёмка"),
		progressbar.OptionSetWriter(progress),
		progressbar.OptionShowCount(),
	)
	defer fmt.Fprintln(progress)

	sum := &captureSummary{}
	for i := 0; i < opts.Count; i++ {
		if i > 0 && opts.Interval > 0 {
			select {
			case <-time.After(opts.Interval):
			case <-ctx.Done():
				return nil, ctx.Err()
			}
		}

		frame, err := manager.Capture(ctx)
		if err != nil {
			return nil, err
		}
		sum.Taken++
		sum.DarkRetries += frame.Retries

		result := verifier.Verify(ctx, frame.JPEG)
		sum.Results = append(sum.Results, result)
		if result.Verified {
			ref, err := store.SaveImage(frame.JPEG, ".jpg")
			if err != nil {
				return nil, err
			}
			sum.Saved = append(sum.Saved, ref)
		}
		bar.Add(1)
	}
	bar.Finish()
	return sum, nil
}

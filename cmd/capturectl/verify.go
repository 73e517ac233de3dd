package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sync"
	"text/tabwriter"

	"artisan-market/internal/models"
	"artisan-market/internal/verify"

	"github.com/schollz/progressbar/v3"
	"github.com/spf13/cobra"
)

var verifyWorkers int

var verifyCmd = &cobra.Command{
	Use:   "verify <file>...",
	Short: "Проверить качество фото товара",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		reports, err := verifyFiles(cmd.Context(), &verify.Heuristic{}, args, verifyWorkers, cmd.ErrOrStderr())
		if err != nil {
			return err
		}
		printReports(cmd.OutOrStdout(), reports)
		return nil
	},
}

func init() {
	verifyCmd.Flags().IntVarP(&verifyWorkers, "workers", "w", 4, "Сколько фото проверять параллельно")
	rootCmd.AddCommand(verifyCmd)
}

// fileReport - результат проверки одного файла
type fileReport struct {
	Path   string
	Result models.VerificationResult
	Err    error
}

// verifyFiles проверяет файлы пулом воркеров; порядок отчётов совпадает с порядком путей
func verifyFiles(ctx context.Context, verifier verify.Verifier, paths []string, workers int, progress io.Writer) ([]fileReport, error) {
	if workers < 1 {
		workers = 1
	}

	bar := progressbar.NewOptions(len(paths),
		progressbar.OptionSetDescription("🔍 Проверка фото"),
		progressbar.OptionSetWriter(progress),
		progressbar.OptionShowCount(),
	)

	reports := make([]fileReport, len(paths))
	jobs := make(chan int)
	var wg sync.WaitGroup

	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for idx := range jobs {
				reports[idx] = verifyFile(ctx, verifier, paths[idx])
				bar.Add(1)
			}
		}()
	}

feed:
	for i := range paths {
		select {
		case jobs <- i:
		case <-ctx.Done():
			break feed
		}
	}
	close(jobs)
	wg.Wait()
	bar.Finish()
	fmt.Fprintln(progress)

	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return reports, nil
}

func verifyFile(ctx context.Context, verifier verify.Verifier, path string) fileReport {
	data, err := os.ReadFile(path)
	if err != nil {
		return fileReport{Path: path, Err: err}
	}
	return fileReport{Path: path, Result: verifier.Verify(ctx, data)}
}

func printReports(out io.Writer, reports []fileReport) {
	w := tabwriter.NewWriter(out, 0, 0, 3, ' ', 0)
	fmt.Fprintln(w, "FILE\tVERIFIED\tCONFIDENCE\tSIZE\tLUMINANCE\tLABELS")
	fmt.Fprintln(w, "----\t--------\t----------\t----\t---------\t------")

	for _, r := range reports {
		name := filepath.Base(r.Path)
		if r.Err != nil {
			fmt.Fprintf(w, "%s\t-\t-\t-\t-\t%v\n", name, r.Err)
			continue
		}
		labels := fmt.Sprint(r.Result.Labels)
		if r.Result.Reason != "" {
			labels += " (" + r.Result.Reason + ")"
		}
		fmt.Fprintf(w, "%s\t%t\t%.0f%%\t%dx%d\t%.1f\t%s\n",
			name, r.Result.Verified, r.Result.Confidence*100,
			r.Result.Width, r.Result.Height, r.Result.Luminance, labels)
	}
	w.Flush()
}

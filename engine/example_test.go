package engine_test

import (
	"context"
	"fmt"
	"strings"

	"github.com/xraph/conveyor"
	"github.com/xraph/conveyor/adapter/memory"
	"github.com/xraph/conveyor/engine"
	"github.com/xraph/conveyor/processor"
)

func Example() {
	reader := memory.NewSliceReader("words", []any{"alpha", "", "beta", "gamma"})
	writer := memory.NewCollectingWriter()

	j, err := engine.New(
		engine.WithName("upper"),
		engine.WithReader(reader),
		engine.WithProcessors(
			processor.Reject(conveyor.PayloadMatches(func(s string) bool { return s == "" })),
			processor.Map(func(_ context.Context, s string) (string, error) {
				return strings.ToUpper(s), nil
			}),
		),
		engine.WithWriter(writer),
		engine.WithBatchSize(2),
	)
	if err != nil {
		fmt.Println(err)
		return
	}

	report := j.Run(context.Background())
	fmt.Println(report.Status)
	fmt.Println(report.Metrics.ReadCount, report.Metrics.FilterCount, report.Metrics.WriteCount)
	fmt.Println(writer.Payloads())
	// Output:
	// completed
	// 4 1 3
	// [ALPHA BETA GAMMA]
}

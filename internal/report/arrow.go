package report

import (
	"fmt"
	"io"

	"github.com/apache/arrow/go/v17/arrow"
	"github.com/apache/arrow/go/v17/arrow/array"
	"github.com/apache/arrow/go/v17/arrow/ipc"
	"github.com/apache/arrow/go/v17/arrow/memory"
)

// arrowBatchSize caps the rows per record batch in the totals file.
const arrowBatchSize = 64 * 1024

// TotalsSchema is the Arrow schema of the totals file: one row per trial.
var TotalsSchema = arrow.NewSchema([]arrow.Field{
	{Name: "trial", Type: arrow.PrimitiveTypes.Int64},
	{Name: "total_loss", Type: arrow.PrimitiveTypes.Float64},
}, nil)

// WriteTotalsArrow writes totals as an Arrow IPC stream in trial order.
// The stream format needs no seeking, so w may be buffered.
func WriteTotalsArrow(w io.Writer, totals []float64) error {
	mem := memory.NewGoAllocator()
	fw := ipc.NewWriter(w, ipc.WithSchema(TotalsSchema), ipc.WithAllocator(mem))

	b := array.NewRecordBuilder(mem, TotalsSchema)
	defer b.Release()
	trials := b.Field(0).(*array.Int64Builder)
	losses := b.Field(1).(*array.Float64Builder)

	for start := 0; start < len(totals); start += arrowBatchSize {
		end := min(start+arrowBatchSize, len(totals))
		trials.Reserve(end - start)
		for i := start; i < end; i++ {
			trials.UnsafeAppend(int64(i))
		}
		losses.AppendValues(totals[start:end], nil)

		rec := b.NewRecord()
		err := fw.Write(rec)
		rec.Release()
		if err != nil {
			fw.Close()
			return fmt.Errorf("writing arrow batch: %w", err)
		}
	}

	if err := fw.Close(); err != nil {
		return fmt.Errorf("closing arrow writer: %w", err)
	}
	return nil
}

package maintenance

import (
	"testing"

	"github.com/inkwell-labs/ragkit/internal/vectorstore"
)

func TestAdaptProgressForwardsFields(t *testing.T) {
	var got ReindexProgress
	adapted := adaptProgress(func(p ReindexProgress) { got = p })

	adapted(vectorstore.Progress{Processed: 4000, Total: 12000, MemoryMiB: 512})

	if got.Processed != 4000 || got.Total != 12000 || got.MemoryMiB != 512 {
		t.Fatalf("unexpected progress: %+v", got)
	}
}

func TestAdaptProgressNilCallbackReturnsNil(t *testing.T) {
	if adaptProgress(nil) != nil {
		t.Fatal("expected nil adapter for nil callback")
	}
}

package dto

import (
	"fmt"
	"reflect"
	"strings"
	"testing"

	"github.com/yigit/transcriptgpa/internal/domain/transcript"
)

func TestBindingLimitsMatchColumnWidths(t *testing.T) {
	cases := []struct {
		typ   reflect.Type
		field string
		max   int
	}{
		{reflect.TypeOf(RecordRequest{}), "Title", transcript.MaxTitleLen},
		{reflect.TypeOf(RecordRequest{}), "Term", transcript.MaxTermLen},
		{reflect.TypeOf(CreateTranscriptTextRequest{}), "SourceFile", transcript.MaxSourceFileLen},
	}
	for _, tc := range cases {
		f, ok := tc.typ.FieldByName(tc.field)
		if !ok {
			t.Fatalf("%s.%s: field missing", tc.typ.Name(), tc.field)
		}
		want := fmt.Sprintf("max=%d", tc.max)
		if tag := f.Tag.Get("binding"); !strings.Contains(tag, want) {
			t.Fatalf("%s.%s: want tag with %s got=%q", tc.typ.Name(), tc.field, want, tag)
		}
	}
}

package form

import (
	"encoding/json"
	"errors"
	"strings"
	"testing"
)

func TestNewDefaults(t *testing.T) {
	d := New()
	if d.Version != SchemaVersion {
		t.Errorf("version = %d", d.Version)
	}
	if d.ID == "" {
		t.Error("expected a document id")
	}
	if len(d.IP6.Items) != 11 || len(d.IP8.Items) != 7 || len(d.Visual.Items) != 6 {
		t.Errorf("unexpected checklist sizes %d/%d/%d", len(d.IP6.Items), len(d.IP8.Items), len(d.Visual.Items))
	}
	if d.Markup.Tool != ToolPen || d.Markup.LegendKey != "HIGH" || d.Markup.BrushSize != 6 {
		t.Errorf("unexpected markup defaults %+v", d.Markup)
	}
}

func TestEncodeUsesRecordFieldNames(t *testing.T) {
	data, err := New().Encode()
	if err != nil {
		t.Fatal(err)
	}
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		t.Fatal(err)
	}
	for _, k := range []string{"header", "ip6", "ip8", "visual", "markup"} {
		if _, ok := raw[k]; !ok {
			t.Errorf("missing top-level field %q", k)
		}
	}
	for _, k := range []string{`"legendKey"`, `"brushSize"`, `"backgroundImageDataUrl"`, `"drawingDataUrl"`, `"readyForPrimerInitials"`} {
		if !strings.Contains(string(data), k) {
			t.Errorf("encoded document lacks %s", k)
		}
	}
}

func TestDecodeNormalizes(t *testing.T) {
	doc, err := Decode([]byte(`{"markup":{"tool":"LASER","legendKey":"CONTAMINATION","brushSize":99}}`))
	if err != nil {
		t.Fatal(err)
	}
	if doc.Markup.Tool != ToolPen || doc.Markup.LegendKey != "HIGH" || doc.Markup.BrushSize != MaxBrushSize {
		t.Errorf("not normalised: %+v", doc.Markup)
	}
}

func TestDecodeRejectsGarbage(t *testing.T) {
	for _, in := range []string{"", "null", "{", "[1,2]", `"text"`} {
		if _, err := Decode([]byte(in)); err == nil {
			t.Errorf("expected error for %q", in)
		}
	}
}

func TestSetInitialsTouchesOneField(t *testing.T) {
	d := New()
	if err := d.SetInitials(SectionIP6, "ip6_4", "JD"); err != nil {
		t.Fatal(err)
	}
	if d.IP6.Items[3].Initials != "JD" {
		t.Errorf("item not updated: %+v", d.IP6.Items[3])
	}
	if d.Visual.QCFinalApprovalInitials != "" || d.IP6.ReadyForPrimerInitials != "" {
		t.Error("setting one item changed an unrelated field")
	}
	for i, it := range d.IP6.Items {
		if i != 3 && it.Initials != "" {
			t.Errorf("item %s changed", it.ID)
		}
	}
}

func TestSetterErrors(t *testing.T) {
	d := New()
	if err := d.SetInitials("ip7", "x", "A"); !errors.Is(err, ErrUnknownSection) {
		t.Errorf("got %v", err)
	}
	if err := d.SetInitials(SectionIP8, "ip6_1", "A"); !errors.Is(err, ErrUnknownItem) {
		t.Errorf("got %v", err)
	}
	if err := d.SetApproval("signature", "A"); !errors.Is(err, ErrUnknownApproval) {
		t.Errorf("got %v", err)
	}
	if err := d.SetApproval(ApprovalQCFinal, "QC"); err != nil || d.Visual.QCFinalApprovalInitials != "QC" {
		t.Errorf("approval not set: %v", err)
	}
	if err := d.SetDate(SectionVisual, "2026-10-15"); err != nil || d.Visual.Date != "2026-10-15" {
		t.Errorf("date not set: %v", err)
	}
	if err := d.SetNotes(SectionIP8, "runs on edge"); err != nil || d.IP8.Notes != "runs on edge" {
		t.Errorf("notes not set: %v", err)
	}
}

func TestCloneIsDeep(t *testing.T) {
	d := New()
	c := d.Clone()
	c.IP8.Items[0].Initials = "ZZ"
	c.Header.PanelSerial = "S-1"
	if d.IP8.Items[0].Initials != "" || d.Header.PanelSerial != "" {
		t.Error("clone shares state with original")
	}
}

func TestExportFilename(t *testing.T) {
	tests := []struct {
		po, serial, want string
	}{
		{"", "", "markup.png"},
		{"PO-100", "", "markup_PO-100.png"},
		{"", "SN7", "markup_SN7.png"},
		{" PO-100 ", " SN7 ", "markup_PO-100_SN7.png"},
		{"PO/1", "../../etc/SN", "markup_PO-1_..-..-etc-SN.png"},
		{"", `C:\SN`, "markup_C:-SN.png"},
	}
	for _, tc := range tests {
		d := New()
		d.Header = Header{ProductionOrder: tc.po, PanelSerial: tc.serial}
		if got := d.ExportFilename(); got != tc.want {
			t.Errorf("ExportFilename(%q, %q) = %q, want %q", tc.po, tc.serial, got, tc.want)
		}
	}
}

func TestClampBrushSize(t *testing.T) {
	for in, want := range map[int]int{-4: 2, 0: 2, 2: 2, 17: 17, 30: 30, 31: 30} {
		if got := ClampBrushSize(in); got != want {
			t.Errorf("ClampBrushSize(%d) = %d, want %d", in, got, want)
		}
	}
}

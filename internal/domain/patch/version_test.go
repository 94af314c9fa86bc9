package patch

import "testing"

func TestIsKnownVersion(t *testing.T) {
	t.Parallel()

	if !IsKnownVersion("2.0.1") {
		t.Error("2.0.1 should be a known version")
	}
	if IsKnownVersion("9.9.9") {
		t.Error("9.9.9 should not be a known version")
	}
}

func TestSchemeForMajorVersion(t *testing.T) {
	t.Parallel()

	cases := map[string]string{
		"1.0.0": "v1",
		"1.9.9": "v1",
		"2.0.0": "v2",
		"3.0.0": "v2",
		"bogus": "v2",
	}
	for version, want := range cases {
		if got := schemeFor(version); got != want {
			t.Errorf("schemeFor(%q) = %q, want %q", version, got, want)
		}
	}
}

func TestAnchorForUnknownKind(t *testing.T) {
	t.Parallel()

	_, ok := AnchorFor(FileKind("bogus"), "2.0.0")
	if ok {
		t.Error("expected AnchorFor to report not-ok for an unregistered file kind")
	}
}

func TestAnchorForBothKindsAndSchemes(t *testing.T) {
	t.Parallel()

	for _, kind := range []FileKind{KindExecTool, KindPiTools} {
		for _, version := range []string{"1.0.0", "2.0.0"} {
			spec, ok := AnchorFor(kind, version)
			if !ok {
				t.Errorf("AnchorFor(%v, %q) not found", kind, version)
				continue
			}
			if spec.Anchor == "" || spec.Sentinel == "" || spec.Template == "" {
				t.Errorf("AnchorFor(%v, %q) returned an incomplete spec: %+v", kind, version, spec)
			}
		}
	}
}

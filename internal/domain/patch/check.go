package patch

import (
	"os"
	"strings"
)

// Check reports the patch state of one file by direct inspection: reads
// the file and looks for either sentinel. A file that is missing entirely
// is reported Native, since the common reason a target file is absent is
// that the runtime builds the hook in rather than requiring a patch.
func Check(f File) (Result, error) {
	data, err := os.ReadFile(f.Path)
	if err != nil {
		if os.IsNotExist(err) {
			return Result{File: f, State: Native, Note: "target file not present"}, nil
		}
		return Result{}, err
	}
	content := string(data)
	if strings.Contains(content, "// SENTINELGATE_PATCH_v1") || strings.Contains(content, "// SENTINELGATE_PATCH_v2") {
		return Result{File: f, State: Patched}, nil
	}
	return Result{File: f, State: Unpatched}, nil
}

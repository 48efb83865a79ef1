//-------------------------------------------------------------------------
//
// pgEdge Retail Prep
//
// Portions copyright (c) 2025 - 2026, pgEdge, Inc.
// This software is released under The PostgreSQL License
//
//-------------------------------------------------------------------------

package version

import (
	"strings"
	"testing"
)

func TestInfo(t *testing.T) {
	info := Info()
	if !strings.HasPrefix(info, "pgedge-retailprep "+Version) {
		t.Errorf("Unexpected version info: %s", info)
	}
	if !strings.Contains(info, "commit: "+Commit) {
		t.Errorf("Version info should include the commit: %s", info)
	}
}

func TestShort(t *testing.T) {
	if Short() != Version {
		t.Errorf("Expected %s, got %s", Version, Short())
	}
}

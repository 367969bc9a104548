package main

import (
	"os"
	"path/filepath"
	"testing"
)

// chdir changes the working directory to dir for the duration of the test
// and restores it on cleanup, matching testing.T.Chdir from newer Go.
func chdir(t *testing.T, dir string) {
	t.Helper()
	oldwd, err := os.Getwd()
	if err != nil {
		t.Fatal(err)
	}
	if err := os.Chdir(dir); err != nil {
		t.Fatal(err)
	}
	if filepath.IsAbs(dir) {
		t.Setenv("PWD", dir)
	} else {
		t.Setenv("PWD", filepath.Join(oldwd, dir))
	}
	t.Cleanup(func() {
		if err := os.Chdir(oldwd); err != nil {
			panic("testing: failed to restore working directory: " + err.Error())
		}
	})
}

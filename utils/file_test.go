package utils

import (
	"os"
	"path/filepath"
	"testing"

	"go.viam.com/test"
)

func TestSafeJoinDir(t *testing.T) {
	for _, tc := range []struct {
		name string
		safe bool
	}{
		{"profile.json", true},
		{"sub/profile.json", true},
		{"../profile.json", false},
		{"a/../b.json", true},
		{"..", false},
		{"", false},
	} {
		t.Run(tc.name, func(t *testing.T) {
			_, err := SafeJoinDir("/data/rig", tc.name)
			if tc.safe {
				test.That(t, err, test.ShouldBeNil)
			} else {
				test.That(t, err, test.ShouldNotBeNil)
			}
		})
	}
}

func TestWriteFileAtomic(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "a.json")
	test.That(t, WriteFileAtomic(path, []byte("one"), 0o600), test.ShouldBeNil)
	test.That(t, WriteFileAtomic(path, []byte("two"), 0o600), test.ShouldBeNil)

	data, err := os.ReadFile(path)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, string(data), test.ShouldEqual, "two")

	entries, err := os.ReadDir(dir)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, entries, test.ShouldHaveLength, 1)

	RemoveFileNoError(path)
	RemoveFileNoError(path)
	_, err = os.Stat(path)
	test.That(t, os.IsNotExist(err), test.ShouldBeTrue)

	test.That(t, WriteFileAtomic(filepath.Join(dir, "missing", "a.json"), nil, 0o600), test.ShouldNotBeNil)
}

package main

import "testing"

func TestRootCommandTree(t *testing.T) {
	root := newRootCommand()
	paths := [][]string{
		{"parse"}, {"match"}, {"process"}, {"confirm"}, {"export"},
		{"runs", "list"}, {"runs", "show"},
		{"inventory", "sync"}, {"inventory", "import"}, {"inventory", "list"},
		{"mail", "fetch"}, {"mail", "process"}, {"mail", "listen"},
	}
	for _, path := range paths {
		cmd, _, err := root.Find(path)
		if err != nil {
			t.Fatalf("%v: %v", path, err)
		}
		if cmd.Name() != path[len(path)-1] {
			t.Fatalf("%v resolved to %s", path, cmd.Name())
		}
	}
	if root.PersistentFlags().Lookup("json") == nil {
		t.Fatal("missing --json flag")
	}
}

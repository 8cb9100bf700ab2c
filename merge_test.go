package reactor

import (
	"reflect"
	"sort"
	"testing"
)

func TestMerge_NestedMapsMergeKeyByKey(t *testing.T) {
	cur := State{
		"server": map[string]any{"host": "localhost", "port": 8080},
		"name":   "kirk",
	}
	next, changed := merge(cur, Patch{
		"server": map[string]any{"port": 9090},
	})

	server := next["server"].(map[string]any)
	if server["host"] != "localhost" {
		t.Errorf("expected host preserved, got %v", server["host"])
	}
	if server["port"] != 9090 {
		t.Errorf("expected port 9090, got %v", server["port"])
	}
	if next["name"] != "kirk" {
		t.Errorf("expected untouched key preserved, got %v", next["name"])
	}
	if !reflect.DeepEqual(changed, []string{"server"}) {
		t.Errorf("expected changed [server], got %v", changed)
	}
}

func TestMerge_ScalarsAndSlicesReplace(t *testing.T) {
	cur := State{"tags": []string{"a", "b"}, "age": 35}
	next, _ := merge(cur, Patch{"tags": []string{"c"}, "age": 36})

	if !reflect.DeepEqual(next["tags"], []string{"c"}) {
		t.Errorf("expected slice replaced, got %v", next["tags"])
	}
	if next["age"] != 36 {
		t.Errorf("expected age 36, got %v", next["age"])
	}
}

func TestMerge_NilValueDoesNotDelete(t *testing.T) {
	cur := State{"age": 35}
	next, changed := merge(cur, Patch{"age": nil})

	if next["age"] != 35 {
		t.Errorf("expected age retained, got %v", next["age"])
	}
	if len(changed) != 0 {
		t.Errorf("expected no changed keys, got %v", changed)
	}
}

func TestMerge_NewKeysAdded(t *testing.T) {
	next, changed := merge(State{"age": 35}, Patch{"name": "kirk"})

	if next["name"] != "kirk" {
		t.Errorf("expected name added, got %v", next["name"])
	}
	if next["age"] != 35 {
		t.Errorf("expected age preserved, got %v", next["age"])
	}
	if !reflect.DeepEqual(changed, []string{"name"}) {
		t.Errorf("expected changed [name], got %v", changed)
	}
}

func TestMerge_UnchangedValueNotReportedChanged(t *testing.T) {
	_, changed := merge(State{"age": 35, "name": "kirk"}, Patch{"age": 35, "name": "spock"})

	if !reflect.DeepEqual(changed, []string{"name"}) {
		sort.Strings(changed)
		if !reflect.DeepEqual(changed, []string{"name"}) {
			t.Errorf("expected changed [name], got %v", changed)
		}
	}
}

func TestMerge_DoesNotMutateCurrent(t *testing.T) {
	cur := State{
		"server": map[string]any{"host": "localhost"},
	}
	_, _ = merge(cur, Patch{"server": map[string]any{"host": "other"}})

	if cur["server"].(map[string]any)["host"] != "localhost" {
		t.Error("merge mutated the previous state")
	}
}

func TestMerge_PatchAndStateTypedValuesMerge(t *testing.T) {
	cur := State{"server": State{"host": "localhost", "port": 8080}}
	next, _ := merge(cur, Patch{"server": Patch{"port": 9090}})

	server, ok := asMap(next["server"])
	if !ok {
		t.Fatalf("expected map value, got %T", next["server"])
	}
	if server["host"] != "localhost" || server["port"] != 9090 {
		t.Errorf("unexpected merged server: %v", server)
	}
}

package registry

import "testing"

func TestViewsClearWorkspace(t *testing.T) {
	r := NewViews()
	r.Add(View{ID: "v1", Workspace: "/ws/a", PluginID: "p1"})
	r.Add(View{ID: "v2", Workspace: "/ws/a", PluginID: "p2"})
	r.Add(View{ID: "v3", Workspace: "/ws/b", PluginID: "p1"})

	if removed := r.ClearWorkspace("/ws/a"); removed != 2 {
		t.Errorf("ClearWorkspace() removed %d, want 2", removed)
	}
	if got := r.List("/ws/a"); len(got) != 0 {
		t.Errorf("List(/ws/a) = %v, want empty", got)
	}
	if got := r.List("/ws/b"); len(got) != 1 {
		t.Errorf("List(/ws/b) = %v, want 1 entry", got)
	}
}

func TestViewsRemove(t *testing.T) {
	r := NewViews()
	r.Add(View{ID: "v1", Workspace: "/ws/a"})

	if !r.Remove("/ws/a", "v1") {
		t.Error("Remove() = false, want true")
	}
	if r.Remove("/ws/a", "v1") {
		t.Error("second Remove() = true, want false")
	}
}

func TestWidgetsListOrder(t *testing.T) {
	r := NewWidgets()
	r.Add(Widget{ID: "w1", Workspace: "/ws"})
	r.Add(Widget{ID: "w2", Workspace: "/ws"})

	got := r.List("/ws")
	if len(got) != 2 || got[0].ID != "w1" || got[1].ID != "w2" {
		t.Errorf("List() = %v, want [w1 w2] in order", got)
	}
}

func TestSharedDataWatchNotify(t *testing.T) {
	s := NewSharedData()

	var gotKey string
	var gotVal any
	s.Watch("proj", "/ws", func(key string, value any) {
		gotKey, gotVal = key, value
	})

	s.Set("proj", "build-status", "done")

	if gotKey != "build-status" || gotVal != "done" {
		t.Errorf("watcher got (%q, %v), want (build-status, done)", gotKey, gotVal)
	}

	v, ok := s.Get("proj", "build-status")
	if !ok || v != "done" {
		t.Errorf("Get() = (%v, %v), want (done, true)", v, ok)
	}
}

func TestSharedDataStopWatching(t *testing.T) {
	s := NewSharedData()

	count := 0
	s.Watch("proj", "/ws", func(string, any) { count++ })

	s.Set("proj", "k", 1)
	if removed := s.StopWatching("proj", "/ws"); removed != 1 {
		t.Errorf("StopWatching() = %d, want 1", removed)
	}
	s.Set("proj", "k", 2)

	if count != 1 {
		t.Errorf("watcher called %d times, want 1", count)
	}
}

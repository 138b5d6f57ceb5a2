package gitfs

import "testing"

func TestClassify(t *testing.T) {
	config := Config{}.withDefaults()
	tests := []struct {
		path   string
		kind   Kind
		target string
	}{
		{"", KindReal, ""},
		{"notes.txt", KindReal, "notes.txt"},
		{"dir/file", KindReal, "dir/file"},
		{"dir/.githistory", KindReal, "dir/.githistory"},
		{"dir/.git", KindReal, "dir/.git"},
		{".githistory", KindHistory, ""},
		{".githistory/a", KindHistory, "a"},
		{".githistory/a/b/c", KindHistory, "a/b/c"},
		{".githistoryx", KindReal, ".githistoryx"},
		{".gitfuserepo", KindRepoLink, ".gitfuserepo"},
		{".gitfuserepo/x", KindHidden, ".gitfuserepo/x"},
		{".git", KindHidden, ".git"},
		{".git/config", KindHidden, ".git/config"},
	}

	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			kind, target := config.Classify(tt.path)
			if kind != tt.kind || target != tt.target {
				t.Errorf("Classify(%q) = %v, %q; want %v, %q", tt.path, kind, target, tt.kind, tt.target)
			}
		})
	}
}

func TestClassifyCustomNames(t *testing.T) {
	config := Config{HistoryDir: ".versions", RepoLink: ".repo"}
	if kind, target := config.Classify(".versions/x"); kind != KindHistory || target != "x" {
		t.Errorf("got %v, %q", kind, target)
	}
	if kind, _ := config.Classify(".githistory"); kind != KindReal {
		t.Errorf("default name still reserved: %v", kind)
	}
	if kind, _ := config.Classify(".repo"); kind != KindRepoLink {
		t.Errorf("got %v", kind)
	}
}

func TestConfigValidate(t *testing.T) {
	tests := []struct {
		name    string
		config  Config
		wantErr bool
	}{
		{"defaults", Config{}, false},
		{"custom", Config{HistoryDir: ".h", RepoLink: ".r"}, false},
		{"nested history", Config{HistoryDir: "a/b"}, true},
		{"dot", Config{RepoLink: "."}, true},
		{"dot dot", Config{HistoryDir: ".."}, true},
		{"git dir", Config{HistoryDir: ".git"}, true},
		{"same names", Config{HistoryDir: ".x", RepoLink: ".x"}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.config.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestJoinPath(t *testing.T) {
	if got := joinPath("", "a"); got != "a" {
		t.Errorf("joinPath root = %q", got)
	}
	if got := joinPath("a/b", "c"); got != "a/b/c" {
		t.Errorf("joinPath nested = %q", got)
	}
}

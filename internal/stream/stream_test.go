package stream

import "testing"

func TestHasSongRequiresBothArtistAndTitle(t *testing.T) {
	cases := []struct {
		name string
		info SongInfo
		want bool
	}{
		{"both set", SongInfo{Artist: "A", Title: "B"}, true},
		{"title only", SongInfo{Title: "B"}, false},
		{"artist only", SongInfo{Artist: "A"}, false},
		{"neither", SongInfo{}, false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := tc.info.HasSong(); got != tc.want {
				t.Fatalf("HasSong() = %v, want %v", got, tc.want)
			}
		})
	}
}

func TestFormatErrorMessageIncludesReason(t *testing.T) {
	err := formatErrorf("stream %s rejected: %d", "foo", 404)
	want := "stream: format error: stream foo rejected: 404"
	if err.Error() != want {
		t.Fatalf("got %q, want %q", err.Error(), want)
	}
}

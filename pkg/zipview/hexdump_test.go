// Copyright (c) 2025 AUTHORS All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package zipview

import (
	"strings"
	"testing"
)

func TestWriteHexDump(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{
			name: "empty",
			in:   "",
			want: "",
		},
		{
			name: "partial row",
			in:   "Hi \x01",
			want: "48 69 20 01 " + strings.Repeat(hexPad, 12) +
				`&#72;&#105;&nbsp;<font color="red">.</font><br>` + "\n",
		},
		{
			name: "full row",
			in:   "ABCDEFGHIJKLMNOP",
			want: "41 42 43 44 45 46 47 48 49 4A 4B 4C 4D 4E 4F 50 " +
				"&#65;&#66;&#67;&#68;&#69;&#70;&#71;&#72;&#73;&#74;&#75;&#76;&#77;&#78;&#79;&#80;<br>\n",
		},
		{
			name: "row and a byte",
			in:   "ABCDEFGHIJKLMNOP\xff",
			want: "41 42 43 44 45 46 47 48 49 4A 4B 4C 4D 4E 4F 50 " +
				"&#65;&#66;&#67;&#68;&#69;&#70;&#71;&#72;&#73;&#74;&#75;&#76;&#77;&#78;&#79;&#80;<br>\n" +
				"FF " + strings.Repeat(hexPad, 15) + "&#255;<br>\n",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var sb strings.Builder
			if err := writeHexDump(&sb, strings.NewReader(tt.in)); err != nil {
				t.Fatalf("writeHexDump: %v", err)
			}
			if got := sb.String(); got != tt.want {
				t.Errorf("writeHexDump(%q) =\n%s\nwant\n%s", tt.in, got, tt.want)
			}
		})
	}
}

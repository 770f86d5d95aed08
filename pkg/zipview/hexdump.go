// Copyright (c) 2025 AUTHORS All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package zipview

import (
	"bufio"
	"errors"
	"io"
	"strconv"
)

const (
	hexRowSize  = 16
	hexDigits   = "0123456789ABCDEF"
	controlChar = `<font color="red">.</font>`
	hexPad      = "&nbsp;&nbsp;&nbsp;"
)

// writeHexDump writes r as HTML rows of 16 bytes. Each row holds the bytes in
// upper case hex followed by their characters; control characters are shown
// as a red dot and other characters as numeric entities. A short last row is
// padded so its characters line up with the rows above.
func writeHexDump(w io.Writer, r io.Reader) error {
	bw := bufio.NewWriter(w)
	br := bufio.NewReader(r)
	row := make([]byte, 0, hexRowSize)
	for {
		b, err := br.ReadByte()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return err
		}
		row = append(row, b)
		bw.WriteByte(hexDigits[b>>4])
		bw.WriteByte(hexDigits[b&0xf])
		bw.WriteByte(' ')
		if len(row) == hexRowSize {
			writeHexChars(bw, row)
			row = row[:0]
		}
	}
	if len(row) > 0 {
		for range hexRowSize - len(row) {
			bw.WriteString(hexPad)
		}
		writeHexChars(bw, row)
	}
	return bw.Flush()
}

func writeHexChars(bw *bufio.Writer, row []byte) {
	var num [3]byte
	for _, b := range row {
		switch {
		case b < ' ':
			bw.WriteString(controlChar)
		case b == ' ':
			bw.WriteString("&nbsp;")
		default:
			bw.WriteString("&#")
			bw.Write(strconv.AppendUint(num[:0], uint64(b), 10))
			bw.WriteByte(';')
		}
	}
	bw.WriteString("<br>\n")
}

// writeHexPage writes a complete HTML page holding the hex dump of r.
func writeHexPage(w io.Writer, p *page, r io.Reader) error {
	if err := templates.ExecuteTemplate(w, "head", p); err != nil {
		return err
	}
	if _, err := io.WriteString(w, "<body>\n<font face=\"monospace\" size=-1>\n"); err != nil {
		return err
	}
	if err := writeHexDump(w, r); err != nil {
		return err
	}
	_, err := io.WriteString(w, "</font>\n</body>\n</html>\n")
	return err
}

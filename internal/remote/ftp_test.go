package remote

import (
	"testing"

	"github.com/jlaffaye/ftp"
	"github.com/stretchr/testify/assert"
)

func TestNew_Defaults(t *testing.T) {
	c := New(Options{Host: "drop.example.com"})
	assert.Equal(t, "anonymous", c.opts.User)
	assert.Equal(t, "/", c.opts.Dir)
	assert.NotZero(t, c.opts.Timeout)
}

func TestExportNames(t *testing.T) {
	entries := []*ftp.Entry{
		{Name: "acme.xml", Type: ftp.EntryTypeFile},
		{Name: "ACME2.XML", Type: ftp.EntryTypeFile},
		{Name: "readme.txt", Type: ftp.EntryTypeFile},
		{Name: "archive", Type: ftp.EntryTypeFolder},
		{Name: "nested.xml", Type: ftp.EntryTypeFolder},
	}
	assert.Equal(t, []string{"acme.xml", "ACME2.XML"}, exportNames(entries))
}

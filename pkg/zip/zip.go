// Package zip bundles downloaded media blobs into an in-memory archive for
// the project export endpoint.
package zip

import (
	"archive/zip"
	"bytes"
)

// Asset is one archive entry.
type Asset struct {
	Filename string
	MIME     string
	Data     []byte
}

// ArchiveAssets builds a zip archive in memory. Entries that cannot be
// created are skipped; a write failure aborts the whole archive and returns
// nil.
func ArchiveAssets(assets []Asset) []byte {
	buf := &bytes.Buffer{}
	zw := zip.NewWriter(buf)
	for _, asset := range assets {
		w, err := zw.Create(asset.Filename)
		if err != nil {
			continue
		}
		if _, err := w.Write(asset.Data); err != nil {
			return nil
		}
	}
	_ = zw.Close()
	return buf.Bytes()
}

package assemble

import (
	"fmt"
	"sync"

	"github.com/pdfcpu/pdfcpu/pkg/api"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/model"

	"github.com/lakshan-sameera/pdfcombiner/reader"
)

// verify reads the file at path back and checks its page count.
func verify(path, password string, wantPages int) error {
	doc, err := reader.OpenWithPassword(path, password)
	if err != nil {
		return err
	}
	defer doc.Close()

	if got := doc.NumPages(); got != wantPages {
		return fmt.Errorf("output has %d pages, want %d", got, wantPages)
	}
	return nil
}

var disableConfigDir sync.Once

// validateStrict runs pdfcpu's validator over the file at path.
func validateStrict(path, password string) error {
	// pdfcpu would otherwise create a configuration directory in the
	// user's home on first use.
	disableConfigDir.Do(api.DisableConfigDir)

	conf := model.NewDefaultConfiguration()
	conf.UserPW = password
	conf.OwnerPW = password
	return api.ValidateFile(path, conf)
}

package main

import (
	"flag"
	"fmt"

	"github.com/pkg/errors"

	"github.com/maxrt101/svm/svm"
)

func runDis(args []string) error {
	fs := flag.NewFlagSet("dis", flag.ExitOnError)
	if err := fs.Parse(args); err != nil {
		return err
	}
	if fs.NArg() != 1 {
		return errors.New("dis: expected exactly one file")
	}

	code, err := loadCode(fs.Arg(0))
	if err != nil {
		return errors.Wrap(err, "dis")
	}
	fmt.Fprint(stdout, svm.Disassemble(code.Words))
	return nil
}

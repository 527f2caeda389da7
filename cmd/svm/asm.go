package main

import (
	"flag"
	"fmt"

	"github.com/pkg/errors"

	"github.com/maxrt101/svm/svmasm"
	"github.com/maxrt101/svm/svmimg"
)

func runAsm(args []string) error {
	fs := flag.NewFlagSet("asm", flag.ExitOnError)
	out := fs.String("o", "", "output `filename` for the assembled image")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if fs.NArg() != 1 {
		return errors.New("asm: expected exactly one source file")
	}

	code, err := svmasm.AssembleFile(fs.Arg(0))
	if err != nil {
		return errors.Wrap(err, "asm")
	}
	if *out == "" {
		for i, w := range code.Words {
			fmt.Fprintf(stdout, "%04x: %08x\n", i, w)
		}
		return nil
	}
	if err := svmimg.SaveImage(code, *out); err != nil {
		return errors.Wrap(err, "asm")
	}
	return nil
}

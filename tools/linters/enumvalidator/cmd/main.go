package main

import (
	"github.com/LeticiaConforte/lean-inception-application-tcc-sub000/tools/linters/enumvalidator"
	"golang.org/x/tools/go/analysis/singlechecker"
)

func main() {
	singlechecker.Main(enumvalidator.Analyzer)
}

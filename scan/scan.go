// Package scan discovers product directories under a filesystem root
// and turns them into time-stamped file references for the inventory.
package scan

import (
	"fmt"
	"io/ioutil"
	"os"
	"path/filepath"
	"strings"
	"sync"

	goeval "github.com/edisonguo/govaluate"
	"golang.org/x/net/context"

	"github.com/eoproc/surfobs/observations"
	"github.com/eoproc/surfobs/utils"
)

const defaultMaxErrors = 1000

// ParseFilterExpression compiles an optional boolean expression over the
// variables "path" and "type" ("d" for directories, "f" for files). An
// empty expression means no filtering.
func ParseFilterExpression(filter string) (*goeval.EvaluableExpression, error) {
	if len(strings.TrimSpace(filter)) == 0 {
		return nil, nil
	}
	expr, err := goeval.NewEvaluableExpression(filter)
	if err != nil {
		return nil, err
	}
	validVariables := map[string]struct{}{"path": {}, "type": {}}
	for _, token := range expr.Tokens() {
		if token.Kind == goeval.VARIABLE {
			varName, ok := token.Value.(string)
			if !ok {
				return nil, fmt.Errorf("variable token '%v' failed to cast string", token.Value)
			}
			if _, found := validVariables[varName]; !found {
				return nil, fmt.Errorf("variable %v is not supported. Valid variables are %v", varName, validVariables)
			}
		}
	}
	return expr, nil
}

// Scanner walks a directory tree with bounded concurrency and emits a
// file reference for every directory a product type validator accepts.
// Matched product directories are not descended into.
type Scanner struct {
	Outputs    chan utils.FileRef
	Error      chan error
	wg         sync.WaitGroup
	concLimit  chan struct{}
	outputDone chan struct{}
	filter     *goeval.EvaluableExpression
	results    []utils.FileRef
}

func NewScanner(conc int, filter *goeval.EvaluableExpression) *Scanner {
	if conc < 1 {
		conc = 1
	}
	return &Scanner{
		Outputs:    make(chan utils.FileRef, 4096),
		Error:      make(chan error, 100),
		concLimit:  make(chan struct{}, conc),
		outputDone: make(chan struct{}, 1),
		filter:     filter,
	}
}

// Scan walks rootDir and returns the discovered file references sorted
// by acquisition time. Errors on individual entries are collected and
// reported together; the walk itself keeps going.
func (sc *Scanner) Scan(ctx context.Context, rootDir string) ([]utils.FileRef, error) {
	absRootDir, err := filepath.Abs(rootDir)
	if err != nil {
		return nil, err
	}

	go sc.collect()

	sc.wg.Add(1)
	sc.concLimit <- struct{}{}
	sc.scanDir(ctx, absRootDir, false)
	sc.wg.Wait()

	close(sc.Outputs)
	<-sc.outputDone

	close(sc.Error)
	var errors []string
	for err := range sc.Error {
		errors = append(errors, err.Error())
		if len(errors) >= defaultMaxErrors {
			errors = append(errors, " ... too many errors")
			break
		}
	}
	if len(errors) > 0 {
		return sc.results, fmt.Errorf(strings.Join(errors, "\n"))
	}
	if err := ctx.Err(); err != nil {
		return sc.results, err
	}

	utils.SortFileRefs(sc.results)
	return sc.results, nil
}

func (sc *Scanner) collect() {
	for fileRef := range sc.Outputs {
		sc.results = append(sc.results, fileRef)
	}
	sc.outputDone <- struct{}{}
}

func (sc *Scanner) scanDir(ctx context.Context, currPath string, serialised bool) {
	defer sc.wg.Done()
	if !serialised {
		defer func() { <-sc.concLimit }()
	}
	if ctx.Err() != nil {
		return
	}

	entries, err := ioutil.ReadDir(currPath)
	if err != nil {
		sc.reportError(err)
		return
	}

	for _, entry := range entries {
		if !entry.IsDir() {
			continue
		}
		dirPath := filepath.Join(currPath, entry.Name())

		if sc.filter != nil {
			keep, err := sc.evaluateFilter(dirPath)
			if err != nil {
				sc.reportError(err)
				continue
			}
			if !keep {
				continue
			}
		}

		if dataType := observations.GetValidType(dirPath); len(dataType) > 0 {
			fileRef := utils.FileRef{Url: dirPath}
			if startTime, ok := observations.ExtractTimeFromURL(dirPath, dataType); ok {
				fileRef.StartTime = startTime
				fileRef.EndTime = startTime
			}
			sc.Outputs <- fileRef
			continue
		}

		sc.wg.Add(1)
		select {
		case sc.concLimit <- struct{}{}:
			go func(p string) {
				sc.scanDir(ctx, p, false)
			}(dirPath)
		default:
			sc.scanDir(ctx, dirPath, true)
		}
	}
}

func (sc *Scanner) evaluateFilter(dirPath string) (bool, error) {
	parameters := map[string]interface{}{"type": "d", "path": dirPath}
	result, err := sc.filter.Evaluate(parameters)
	if err != nil {
		return false, fmt.Errorf("filter expression: %v", err)
	}
	val, ok := result.(bool)
	if !ok {
		return false, fmt.Errorf("filter expression: result '%v' is not boolean", result)
	}
	return val, nil
}

func (sc *Scanner) reportError(err error) {
	select {
	case sc.Error <- err:
	default:
	}
}

// ScanRoot is the convenience entry point used by the indexing command.
func ScanRoot(ctx context.Context, rootDir string, conc int, filter string) ([]utils.FileRef, error) {
	expr, err := ParseFilterExpression(filter)
	if err != nil {
		return nil, err
	}
	if _, err := os.Stat(rootDir); err != nil {
		return nil, err
	}
	return NewScanner(conc, expr).Scan(ctx, rootDir)
}

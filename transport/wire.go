// Package transport carries jobs and results between a PnsTreeManager
// and a remote worker group over NATS, using the plain text wire
// encodings of §6 rather than a binary format: a couple is
// "<positionStr> <nimberDecimal>", a completed job is a parent line
// followed by one line per reported child.
package transport

import (
	"bufio"
	"bytes"
	"fmt"
	"strconv"
	"strings"

	"github.com/cizektom/spots/errs"
	"github.com/cizektom/spots/nimber"
	"github.com/cizektom/spots/pn"
	"github.com/cizektom/spots/pns"
)

// JobAssignment is what the master sends a worker: the couple to
// expand and the iteration budget to spend on it.
type JobAssignment struct {
	Couple        nimber.Couple
	MaxIterations uint64
}

// EncodeJobAssignment renders "<posStr> <nim> <maxIterations>".
func EncodeJobAssignment(j JobAssignment) []byte {
	return []byte(fmt.Sprintf("%s %d", j.Couple.Compact(), j.MaxIterations))
}

// DecodeJobAssignment parses EncodeJobAssignment's output, using parse
// to decode the position portion of the couple.
func DecodeJobAssignment(data []byte, parse nimber.PositionParser) (JobAssignment, error) {
	line := strings.TrimSpace(string(data))
	idx := strings.LastIndexByte(line, ' ')
	if idx < 0 {
		return JobAssignment{}, fmt.Errorf("%w: job assignment %q missing iteration budget", errs.ErrInvalidInput, line)
	}
	coupleStr, budgetStr := line[:idx], line[idx+1:]
	budget, err := strconv.ParseUint(budgetStr, 10, 64)
	if err != nil {
		return JobAssignment{}, fmt.Errorf("%w: job assignment %q has invalid budget: %v", errs.ErrInvalidInput, line, err)
	}
	couple, err := nimber.ParseCouple(coupleStr, parse)
	if err != nil {
		return JobAssignment{}, err
	}
	return JobAssignment{Couple: couple, MaxIterations: budget}, nil
}

// CompletedJob is what a worker sends back: the parent couple it was
// asked to expand, plus the resulting ExpansionInfo.
type CompletedJob struct {
	Parent nimber.Couple
	Info   pns.ExpansionInfo
}

// EncodeCompletedJob renders the (parentStr, proof, disproof,
// mergedNimber, [(childStr, (proof, disproof))]) tuple of §6 as a
// header line followed by one line per child.
func EncodeCompletedJob(cj CompletedJob) []byte {
	var b bytes.Buffer
	fmt.Fprintf(&b, "%s %s %s %d\n",
		cj.Parent.Compact(), formatPN(cj.Info.PN.Proof), formatPN(cj.Info.PN.Disproof), cj.Info.MergedNimber)
	for _, c := range cj.Info.Children {
		fmt.Fprintf(&b, "%s %s %s\n", c.Couple.Compact(), formatPN(c.PN.Proof), formatPN(c.PN.Disproof))
	}
	return b.Bytes()
}

// DecodeCompletedJob is EncodeCompletedJob's inverse.
func DecodeCompletedJob(data []byte, parse nimber.PositionParser) (CompletedJob, error) {
	scanner := bufio.NewScanner(bytes.NewReader(data))
	if !scanner.Scan() {
		return CompletedJob{}, fmt.Errorf("%w: completed job payload is empty", errs.ErrInvalidInput)
	}
	header := strings.Fields(scanner.Text())
	if len(header) != 5 {
		return CompletedJob{}, fmt.Errorf("%w: completed job header %q malformed", errs.ErrInvalidInput, scanner.Text())
	}
	parentCouple, err := nimber.ParseCouple(header[0]+" "+header[1], parse)
	if err != nil {
		return CompletedJob{}, err
	}
	proof, err := parsePN(header[2])
	if err != nil {
		return CompletedJob{}, err
	}
	disproof, err := parsePN(header[3])
	if err != nil {
		return CompletedJob{}, err
	}
	merged, err := strconv.ParseUint(header[4], 10, 16)
	if err != nil {
		return CompletedJob{}, fmt.Errorf("%w: completed job merged nimber %q invalid", errs.ErrInvalidInput, header[4])
	}

	var children []pns.ExpandedChild
	for scanner.Scan() {
		line := scanner.Text()
		if strings.TrimSpace(line) == "" {
			continue
		}
		fields := strings.Fields(line)
		if len(fields) != 4 {
			return CompletedJob{}, fmt.Errorf("%w: completed job child line %q malformed", errs.ErrInvalidInput, line)
		}
		childCouple, err := nimber.ParseCouple(fields[0]+" "+fields[1], parse)
		if err != nil {
			return CompletedJob{}, err
		}
		cProof, err := parsePN(fields[2])
		if err != nil {
			return CompletedJob{}, err
		}
		cDisproof, err := parsePN(fields[3])
		if err != nil {
			return CompletedJob{}, err
		}
		children = append(children, pns.ExpandedChild{
			Couple: childCouple,
			PN:     pn.ProofNumbers{Proof: cProof, Disproof: cDisproof},
		})
	}
	if err := scanner.Err(); err != nil {
		return CompletedJob{}, fmt.Errorf("%w: %v", errs.ErrInvalidInput, err)
	}

	return CompletedJob{
		Parent: parentCouple,
		Info: pns.ExpansionInfo{
			PN:           pn.ProofNumbers{Proof: proof, Disproof: disproof},
			MergedNimber: nimber.Nimber(merged),
			Children:     children,
		},
	}, nil
}

func formatPN(p pn.PN) string { return strconv.FormatUint(uint64(p), 10) }

func parsePN(s string) (pn.PN, error) {
	v, err := strconv.ParseUint(s, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("%w: proof number %q invalid: %v", errs.ErrInvalidInput, s, err)
	}
	return pn.PN(v), nil
}

// EncodeNimberReport renders a batch of newly discovered nimbers as
// "<posStr> <nim>" lines, the same per-line shape the nimber database
// file format uses.
func EncodeNimberReport(report map[string]nimber.Nimber) []byte {
	var b bytes.Buffer
	for compact, n := range report {
		fmt.Fprintf(&b, "%s %d\n", compact, n)
	}
	return b.Bytes()
}

// DecodeNimberReport is EncodeNimberReport's inverse.
func DecodeNimberReport(data []byte) (map[string]nimber.Nimber, error) {
	out := make(map[string]nimber.Nimber)
	scanner := bufio.NewScanner(bytes.NewReader(data))
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		idx := strings.LastIndexByte(line, ' ')
		if idx < 0 {
			return nil, fmt.Errorf("%w: nimber report line %q missing nim", errs.ErrInvalidInput, line)
		}
		n, err := strconv.ParseUint(line[idx+1:], 10, 16)
		if err != nil {
			return nil, fmt.Errorf("%w: nimber report line %q has invalid nim: %v", errs.ErrInvalidInput, line, err)
		}
		out[line[:idx]] = nimber.Nimber(n)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("%w: %v", errs.ErrInvalidInput, err)
	}
	return out, nil
}

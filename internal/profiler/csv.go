package profiler

import (
	"encoding/csv"
	"fmt"
	"os"
	"sort"
	"strconv"
	"strings"
)

// csvHeader mirrors emitted CSV format exactly.
var csvHeader = []string{
	"PSO Type", "PSO Hash", "Shader Hashes", "Total Time (s)",
	"Non-PS invocations", "PS invocations", "Commands", "RS Hash",
}

// writeCSV implements periodic/shutdown flush: one
// INTERNAL,SWAPCHAIN row carrying the frame count, then one row per
// PSO, sorted by hash for a stable diff between flushes.
func writeCSV(path string, stats map[uint64]psoStats, frameCount uint64) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("profiler: opening %q: %w", path, err)
	}
	defer f.Close()

	w := csv.NewWriter(f)
	if err := w.Write(csvHeader); err != nil {
		return err
	}
	if err := w.Write([]string{
		"INTERNAL", "SWAPCHAIN", "0", "0", "0", "0", strconv.FormatUint(frameCount, 10), "0",
	}); err != nil {
		return err
	}

	hashes := make([]uint64, 0, len(stats))
	for h := range stats {
		hashes = append(hashes, h)
	}
	sort.Slice(hashes, func(i, j int) bool { return hashes[i] < hashes[j] })

	for _, h := range hashes {
		s := stats[h]
		if err := w.Write(psoStatsRow(h, s)); err != nil {
			return err
		}
	}

	w.Flush()
	return w.Error()
}

func psoStatsRow(hash uint64, s psoStats) []string {
	shaderHex := make([]string, len(s.shaderHashes))
	for i, h := range s.shaderHashes {
		shaderHex[i] = fmt.Sprintf("%016x", h)
	}
	return []string{
		s.pipelineType.csvTag(),
		fmt.Sprintf("%016x", hash),
		strings.Join(shaderHex, "+"),
		strconv.FormatFloat(s.totalTimeS, 'f', 9, 64),
		strconv.FormatUint(s.nonPSInvocations, 10),
		strconv.FormatUint(s.psInvocations, 10),
		strconv.FormatUint(s.commandCount, 10),
		fmt.Sprintf("%016x", s.rootSignatureHash),
	}
}

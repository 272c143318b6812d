package main

import (
	"fmt"
	"log"
	"os"

	"github.com/sarchlab/collfold/fold"
	"github.com/sarchlab/collfold/ir"
	"github.com/sarchlab/collfold/verify"
)

func main() {
	modulePath := "ir/testdata/permute.yaml"
	if len(os.Args) > 1 {
		modulePath = os.Args[1]
	}

	m, err := ir.LoadModuleFromYAML(modulePath)
	if err != nil {
		log.Fatalf("Failed to load module from %s: %v", modulePath, err)
	}

	topo := verify.Topology{
		Replicas:   2,
		Partitions: 4,
	}

	fmt.Println("==============================================================================")
	fmt.Println("COLLECTIVE SELECT FOLD VERIFICATION")
	fmt.Println("==============================================================================")
	fmt.Printf("\nLoaded module %s (%d instructions) from %s\n\n",
		m.Name(), m.InstructionCount(), modulePath)

	// ========== LINT CHECK ==========
	fmt.Println("==============================================================================")
	fmt.Println("STAGE 1: LINT CHECK (Structural & Routing Validation)")
	fmt.Println("==============================================================================")

	issues := verify.RunLint(m)
	if len(issues) == 0 {
		fmt.Println("✅ LINT PASSED - No structural or routing issues found")
	} else {
		fmt.Printf("❌ LINT FAILED - Found %d issues:\n", len(issues))
		for i, issue := range issues {
			fmt.Printf("Issue %d: %s\n", i+1, issue)
		}
	}

	// ========== FOLD ==========
	fmt.Println("\n==============================================================================")
	fmt.Println("STAGE 2: FOLD")
	fmt.Println("==============================================================================")

	before := m.Clone()
	changed, err := fold.NewCollectiveSelectFolder().Run(m, nil)
	if err != nil {
		log.Fatalf("Fold failed: %v", err)
	}
	fmt.Printf("changed: %t\n", changed)
	for _, comp := range m.Computations(nil) {
		ir.WriteTable(os.Stdout, comp)
	}

	// ========== FUNCTIONAL SIMULATOR ==========
	fmt.Println("\n==============================================================================")
	fmt.Println("STAGE 3: FUNCTIONAL SIMULATOR (Behavior Comparison)")
	fmt.Println("==============================================================================")

	report, err := verify.CompareBehavior(before, m, topo)
	if err != nil {
		log.Fatalf("Simulation failed: %v", err)
	}
	report.WriteReport(os.Stdout)

	// ========== SUMMARY ==========
	fmt.Println("\n==============================================================================")
	fmt.Println("VERIFICATION SUMMARY")
	fmt.Println("==============================================================================")

	if len(issues) == 0 {
		fmt.Println("✅ Lint Check:       PASSED")
	} else {
		fmt.Printf("❌ Lint Check:       FAILED (%d issues)\n", len(issues))
	}
	if report.Equivalent() {
		fmt.Println("✅ Functional Sim:   PASSED")
	} else {
		fmt.Printf("❌ Functional Sim:   FAILED (%d mismatches)\n", len(report.Mismatches))
	}

	if len(issues) > 0 || !report.Equivalent() {
		log.Fatalf("%s verification failed", m.Name())
	}
}

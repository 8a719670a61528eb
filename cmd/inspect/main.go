package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"sort"

	"github.com/dtremaine/clauseflow/internal/workflow"
	_ "modernc.org/sqlite"
)

// #region main

func main() {
	dbPath := flag.String("db", "", "path to clauseflow.db")
	contractID := flag.String("contract", "", "show single contract detail")
	jsonOut := flag.Bool("json", false, "output as JSON instead of table")
	flag.Parse()

	if *dbPath == "" {
		fmt.Fprintln(os.Stderr, "usage: inspect --db path/to/clauseflow.db [--contract id] [--json]")
		os.Exit(2)
	}

	store, err := workflow.NewStore(*dbPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "open db: %v\n", err)
		os.Exit(1)
	}
	defer store.Close()

	if *contractID != "" {
		if err := runDetailMode(store, *contractID, *jsonOut); err != nil {
			fmt.Fprintf(os.Stderr, "error: %v\n", err)
			os.Exit(1)
		}
	} else {
		if err := runListMode(store, *jsonOut); err != nil {
			fmt.Fprintf(os.Stderr, "error: %v\n", err)
			os.Exit(1)
		}
	}
}

// #endregion main

// #region list-mode

type listRow struct {
	ContractID string `json:"contract_id"`
	Stage      string `json:"stage"`
}

func runListMode(store *workflow.Store, jsonOut bool) error {
	contracts, err := store.ListContracts()
	if err != nil {
		return err
	}
	if len(contracts) == 0 {
		fmt.Fprintln(os.Stderr, "no contracts found")
		return nil
	}

	ids := make([]string, 0, len(contracts))
	for id := range contracts {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	rows := make([]listRow, 0, len(ids))
	for _, id := range ids {
		rows = append(rows, listRow{ContractID: id, Stage: string(contracts[id])})
	}

	if jsonOut {
		return printJSON(rows)
	}

	fmt.Printf("%-40s  %s\n", "Contract", "Stage")
	fmt.Printf("%-40s+-%s\n", "----------------------------------------", "------------------")
	for _, r := range rows {
		fmt.Printf("%-40s  %s\n", r.ContractID, r.Stage)
	}
	return nil
}

// #endregion list-mode

// #region detail-mode

func runDetailMode(store *workflow.Store, contractID string, jsonOut bool) error {
	st, err := store.Get(contractID)
	if err != nil {
		return err
	}

	if jsonOut {
		return printJSON(st)
	}

	fmt.Printf("Contract:  %s\n", st.ContractID)
	fmt.Printf("Stage:     %s\n", st.Stage)
	fmt.Printf("Doc Hash:  %s\n", shortID(st.DocHash))
	fmt.Printf("Created:   %s\n", st.CreatedAt.Format("2006-01-02T15:04:05Z"))
	fmt.Printf("Updated:   %s\n", st.UpdatedAt.Format("2006-01-02T15:04:05Z"))
	if st.StageErr != "" {
		fmt.Printf("Stage Err: %s\n", st.StageErr)
	}

	if st.Report != nil {
		fmt.Printf("\nRisk Report (highest: %s):\n", st.Report.HighestRisk())
		for _, v := range st.Report.Verdicts {
			fmt.Printf("  %-28s %-8s %s\n", v.Category, v.RiskLevel, v.Justification)
		}
	}

	if st.Signature != nil {
		fmt.Printf("\nSignature: %s over %s\n",
			shortID(fmt.Sprintf("%x", st.Signature.Signature)), shortID(st.Signature.Hash))
	}

	if st.Meeting != nil {
		fmt.Printf("\nMeeting:   %s on %s\n",
			st.Meeting.MeetingID, st.Meeting.Date.Format("2006-01-02T15:04:05Z"))
	}

	if len(st.History) > 0 {
		fmt.Printf("\nHistory:\n")
		for _, tr := range st.History {
			note := ""
			if tr.Note != "" {
				note = "  " + tr.Note
			}
			fmt.Printf("  %s  %s -> %s%s\n",
				tr.At.Format("2006-01-02T15:04:05Z"), tr.From, tr.To, note)
		}
	}

	return nil
}

// #endregion detail-mode

// #region output

func printJSON(v interface{}) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal json: %w", err)
	}
	fmt.Println(string(data))
	return nil
}

func shortID(id string) string {
	if len(id) > 12 {
		return id[:12]
	}
	return id
}

// #endregion output

package audit

import (
	"context"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"time"

	"github.com/xitongsys/parquet-go-source/writerfile"
	"github.com/xitongsys/parquet-go/parquet"
	"github.com/xitongsys/parquet-go/writer"
	"lukechampine.com/blake3"
)

// Snapshot is the exported view of the log. Digest is the blake3 hash of the
// JSON-encoded entries so a reviewer can detect edits to an exported file.
type Snapshot struct {
	ExportedAt string    `json:"exportedAt"`
	Stats      Summary   `json:"stats"`
	Anomalies  []Anomaly `json:"anomalies"`
	Entries    []Entry   `json:"entries"`
	Digest     string    `json:"digest"`
}

// EntriesDigest hashes the canonical JSON encoding of entries.
func EntriesDigest(entries []Entry) (string, error) {
	if entries == nil {
		entries = []Entry{}
	}
	blob, err := json.Marshal(entries)
	if err != nil {
		return "", fmt.Errorf("audit: encode entries: %w", err)
	}
	sum := blake3.Sum256(blob)
	return hex.EncodeToString(sum[:]), nil
}

// BuildSnapshot assembles an export for entries at the given time.
func (t Thresholds) BuildSnapshot(entries []Entry, at time.Time) (Snapshot, error) {
	entries = cloneEntries(entries)
	digest, err := EntriesDigest(entries)
	if err != nil {
		return Snapshot{}, err
	}
	return Snapshot{
		ExportedAt: at.UTC().Format("2006-01-02T15:04:05.000Z07:00"),
		Stats:      t.Stats(entries),
		Anomalies:  t.Detect(entries),
		Entries:    entries,
		Digest:     digest,
	}, nil
}

// Export renders the current log as indented JSON. It never modifies the log.
func (l *Log) Export(ctx context.Context, t Thresholds) ([]byte, error) {
	snapshot, err := t.BuildSnapshot(l.Entries(ctx), l.now())
	if err != nil {
		return nil, err
	}
	out, err := json.MarshalIndent(snapshot, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("audit: encode export: %w", err)
	}
	return out, nil
}

type parquetRow struct {
	ID             string  `parquet:"name=id, type=BYTE_ARRAY, convertedtype=UTF8"`
	Timestamp      int64   `parquet:"name=timestamp, type=INT64"`
	Wallet         string  `parquet:"name=wallet, type=BYTE_ARRAY, convertedtype=UTF8"`
	CampaignID     string  `parquet:"name=campaign_id, type=BYTE_ARRAY, convertedtype=UTF8"`
	InputMint      string  `parquet:"name=input_mint, type=BYTE_ARRAY, convertedtype=UTF8"`
	OutputMint     string  `parquet:"name=output_mint, type=BYTE_ARRAY, convertedtype=UTF8"`
	InputAmount    string  `parquet:"name=input_amount, type=BYTE_ARRAY, convertedtype=UTF8"`
	ExpectedFeeBps int32   `parquet:"name=expected_fee_bps, type=INT32"`
	ActualFeeBps   int32   `parquet:"name=actual_fee_bps, type=INT32"`
	SKRBalance     float64 `parquet:"name=skr_balance, type=DOUBLE"`
	SKRBalanceRaw  string  `parquet:"name=skr_balance_raw, type=BYTE_ARRAY, convertedtype=UTF8"`
	HasSeekerNFT   bool    `parquet:"name=has_seeker_nft, type=BOOLEAN"`
	TxSignature    string  `parquet:"name=tx_signature, type=BYTE_ARRAY, convertedtype=UTF8"`
	Anomalies      string  `parquet:"name=anomalies, type=BYTE_ARRAY, convertedtype=UTF8"`
}

// WriteParquet writes entries as a snappy-compressed parquet file to w. Each
// row carries the comma-separated anomaly types raised for that entry.
func (t Thresholds) WriteParquet(w io.Writer, entries []Entry) error {
	flagged := make(map[string]string)
	for _, anomaly := range t.Detect(entries) {
		if prev, ok := flagged[anomaly.EntryID]; ok {
			flagged[anomaly.EntryID] = prev + "," + string(anomaly.Type)
			continue
		}
		flagged[anomaly.EntryID] = string(anomaly.Type)
	}

	fw := writerfile.NewWriterFile(w)
	pw, err := writer.NewParquetWriter(fw, new(parquetRow), 1)
	if err != nil {
		return fmt.Errorf("audit: parquet schema: %w", err)
	}
	pw.CompressionType = parquet.CompressionCodec_SNAPPY

	for _, entry := range entries {
		row := &parquetRow{
			ID:             entry.ID,
			Timestamp:      entry.Timestamp,
			Wallet:         entry.Wallet,
			CampaignID:     entry.CampaignID,
			InputMint:      entry.InputMint,
			OutputMint:     entry.OutputMint,
			InputAmount:    entry.InputAmount,
			ExpectedFeeBps: int32(entry.ExpectedFeeBps),
			ActualFeeBps:   int32(entry.ActualFeeBps),
			SKRBalance:     entry.SKRBalance,
			SKRBalanceRaw:  entry.SKRBalanceRaw,
			HasSeekerNFT:   entry.HasSeekerNFT,
			TxSignature:    entry.Signature(),
			Anomalies:      flagged[entry.ID],
		}
		if err := pw.Write(row); err != nil {
			pw.WriteStop()
			return fmt.Errorf("audit: parquet write: %w", err)
		}
	}
	if err := pw.WriteStop(); err != nil {
		return fmt.Errorf("audit: parquet flush: %w", err)
	}
	return nil
}

package mcpserver

// ImportFormatContract describes the workbook layout that import
// consumers should produce and export emits.
const ImportFormatContract = `# Raido Workbook Format Contract

Slip workbooks are .xlsx files. Import reads the FIRST sheet only;
export writes two sheets ("Slip Details" and "Summary").

## Columns

The first row is the header. Recognized columns (spaced and no-space
variants are both accepted on import):

| Header           | Variant        | Meaning                          |
|------------------|----------------|----------------------------------|
| Type             | Slip Type      | loading, offloading, or fuel     |
| Date             |                | YYYY-MM-DD                       |
| Trip Number      | TripNumber     | trip reference                   |
| Vehicle Number   | VehicleNumber  | vehicle registration             |
| Driver Name      | DriverName     | driver full name                 |
| Amount           |                | monetary value                   |
| Quantity         |                | tons, litres, or units           |
| Location         |                | site or station name             |
| Notes            |                | free text                        |

## Rules

1. Column order does not matter; columns are matched by header text.
2. Missing columns default: type to loading, date to today, text to
   empty, numbers to 0.
3. Type values accept the raw form ("fuel") and the display label
   ("Fuel Slip") in any case.
4. Unparsable numeric cells become 0; the row still imports.
5. Fully blank rows are skipped.
6. Every imported row becomes a NEW record. There is no deduplication:
   importing the same workbook twice doubles the records.
7. Imported records are marked as manual entries (not OCR-processed)
   and receive fresh identifiers.
`

package eventlog

import "sort"

// Change-document header field names shared by every default mapping.
const (
	fieldObjectID  = "OBJECTID"
	fieldTCode     = "TCODE"
	fieldDate      = "UDATE"
	fieldTime      = "UTIME"
	fieldUser      = "USERNAME"
	tableChangeHdr = "CDHDR"
	tableChangePos = "CDPOS"
)

var defaultMappings = map[string]func() *ProcessMapping{
	"o2c": orderToCashMapping,
	"p2p": procureToPayMapping,
	"r2r": recordToReportMapping,
	"a2r": acquireToRetireMapping,
	"h2r": hireToRetireMapping,
	"p2m": planToManufactureMapping,
	"m2s": maintainToSettleMapping,
}

// DefaultMapping returns a fresh copy of the built-in mapping for a process,
// or nil for unknown ids. Built-ins derive events from change-document
// headers (transaction codes, user, split date/time), with flow and status
// tables where the process records them.
func DefaultMapping(processID string) *ProcessMapping {
	build, ok := defaultMappings[processID]
	if !ok {
		return nil
	}

	return build()
}

// DefaultMappingIDs returns the ids of the built-in mappings, sorted.
func DefaultMappingIDs() []string {
	ids := make([]string, 0, len(defaultMappings))
	for id := range defaultMappings {
		ids = append(ids, id)
	}

	sort.Strings(ids)

	return ids
}

// changeDocTables builds the CDHDR/CDPOS pair every default mapping shares:
// headers emit transaction-coded events, positions record field-level
// modifications against the same object id.
func changeDocTables(tcodes map[string]string) map[string]TableMapping {
	return map[string]TableMapping{
		tableChangeHdr: {
			Class:      ClassTransaction,
			TCodeField: fieldTCode,
			Activities: []ActivityMapping{{
				TimestampField: fieldDate,
				TimeField:      fieldTime,
				ResourceField:  fieldUser,
			}},
			TCodeActivities: tcodes,
		},
		tableChangePos: {
			Class:          ClassChange,
			CaseField:      fieldObjectID,
			FieldNameField: "FNAME",
			OldValueField:  "VALUE_OLD",
			NewValueField:  "VALUE_NEW",
			Activities: []ActivityMapping{{
				ResourceField: fieldUser,
			}},
		},
	}
}

func changeDocCase() CaseResolution {
	return CaseResolution{PrimaryTable: tableChangeHdr, Field: fieldObjectID}
}

func orderToCashMapping() *ProcessMapping {
	tables := changeDocTables(map[string]string{
		"VA01":  "Create Sales Order",
		"VKM1":  "Credit Check",
		"VL01N": "Create Delivery",
		"LT03":  "Pick",
		"HU02":  "Pack",
		"VL06G": "Goods Issue",
		"VF01":  "Create Invoice",
		"VF31":  "Send Invoice",
		"F-28":  "Payment Received",
		"F-32":  "Clear Invoice",
		"F150":  "Dunning Notice",
	})

	// Document flow rows carry the delivery and billing chain even when no
	// change document was written for the follow-on document.
	tables["VBFA"] = TableMapping{
		Class:       ClassFlow,
		CaseField:   "VBELV",
		DocTypeField: "VBTYP_N",
		DocTypeActivities: map[string]string{
			"J": "Create Delivery",
			"M": "Create Invoice",
		},
		Activities: []ActivityMapping{{
			TimestampField: "ERDAT",
			TimeField:      "ERZET",
			ResourceField:  "ERNAM",
		}},
	}

	return &ProcessMapping{
		ProcessID: "o2c",
		Name:      "Order to Cash",
		CaseID:    changeDocCase(),
		Tables:    tables,
		KPIs: []KPIDef{
			{Name: "credit_checks_per_case", Unit: "count", Activity: "Credit Check"},
			{Name: "dunning_notices_per_case", Unit: "count", Activity: "Dunning Notice"},
		},
	}
}

func procureToPayMapping() *ProcessMapping {
	return &ProcessMapping{
		ProcessID: "p2p",
		Name:      "Procure to Pay",
		CaseID:    changeDocCase(),
		Tables: changeDocTables(map[string]string{
			"ME51N": "Create Purchase Requisition",
			"ME54N": "Approve Requisition",
			"ME21N": "Create Purchase Order",
			"ME29N": "Approve Purchase Order",
			"MIGO":  "Goods Receipt",
			"MIRO":  "Invoice Receipt",
			"F110":  "Payment Run",
			"F-44":  "Clear Vendor Invoice",
		}),
		KPIs: []KPIDef{
			{Name: "requisition_reworks_per_case", Unit: "count", Activity: "Create Purchase Requisition"},
			{Name: "goods_receipts_per_case", Unit: "count", Activity: "Goods Receipt"},
		},
	}
}

func recordToReportMapping() *ProcessMapping {
	return &ProcessMapping{
		ProcessID: "r2r",
		Name:      "Record to Report",
		CaseID:    changeDocCase(),
		Tables: changeDocTables(map[string]string{
			"FB50": "Create Journal Entry",
			"FV50": "Park Document",
			"FBV0": "Post Document",
			"F.13": "Reconcile Accounts",
			"F.16": "Period-End Close",
			"F.01": "Financial Statements",
		}),
		KPIs: []KPIDef{
			{Name: "parked_documents_per_case", Unit: "count", Activity: "Park Document"},
		},
	}
}

func acquireToRetireMapping() *ProcessMapping {
	return &ProcessMapping{
		ProcessID: "a2r",
		Name:      "Acquire to Retire",
		CaseID:    changeDocCase(),
		Tables: changeDocTables(map[string]string{
			"AS01":  "Create Asset",
			"ABZON": "Capitalize Asset",
			"AFAB":  "Post Depreciation",
			"ABUMN": "Transfer Asset",
			"ABAVN": "Retire Asset",
		}),
		KPIs: []KPIDef{
			{Name: "depreciation_runs_per_case", Unit: "count", Activity: "Post Depreciation"},
		},
	}
}

func hireToRetireMapping() *ProcessMapping {
	return &ProcessMapping{
		ProcessID: "h2r",
		Name:      "Hire to Retire",
		CaseID:    changeDocCase(),
		Tables: changeDocTables(map[string]string{
			"PA40": "Hire Employee",
			"PA30": "Maintain Master Data",
			"CAT2": "Time Recording",
			"PC00": "Run Payroll",
			"PCP0": "Post Payroll",
			"PA41": "Terminate Employee",
		}),
		KPIs: []KPIDef{
			{Name: "payroll_runs_per_case", Unit: "count", Activity: "Run Payroll"},
		},
	}
}

func planToManufactureMapping() *ProcessMapping {
	return &ProcessMapping{
		ProcessID: "p2m",
		Name:      "Plan to Manufacture",
		CaseID:    changeDocCase(),
		Tables: changeDocTables(map[string]string{
			"MD11":  "Create Planned Order",
			"CO40":  "Convert to Production Order",
			"CO02":  "Release Production Order",
			"MB1A":  "Goods Issue Components",
			"CO11N": "Confirm Operations",
			"MB31":  "Goods Receipt Production",
			"KO88":  "Settle Order",
		}),
		KPIs: []KPIDef{
			{Name: "confirmations_per_case", Unit: "count", Activity: "Confirm Operations"},
		},
	}
}

func maintainToSettleMapping() *ProcessMapping {
	tables := changeDocTables(map[string]string{
		"IW21": "Create Notification",
		"IW31": "Create Maintenance Order",
		"IW41": "Confirm Work",
		"KO88": "Settle Costs",
	})

	// Order release and technical completion live in the status change
	// history rather than in change documents.
	tables["JCDS"] = TableMapping{
		Class:       ClassStatus,
		CaseField:   "OBJNR",
		StatusField: "STAT",
		StatusActivities: map[string]string{
			"I0002": "Release Order",
			"I0045": "Technically Complete",
		},
		Activities: []ActivityMapping{{
			TimestampField: fieldDate,
			TimeField:      fieldTime,
			ResourceField:  "USNAM",
		}},
	}

	return &ProcessMapping{
		ProcessID: "m2s",
		Name:      "Maintain to Settle",
		CaseID:    changeDocCase(),
		Tables:    tables,
		KPIs: []KPIDef{
			{Name: "work_confirmations_per_case", Unit: "count", Activity: "Confirm Work"},
		},
	}
}

package refmodel

import "sort"

// Built-in process identifiers.
const (
	ProcessO2C = "o2c" // Order to Cash
	ProcessP2P = "p2p" // Procure to Pay
	ProcessR2R = "r2r" // Record to Report
	ProcessA2R = "a2r" // Acquire to Retire
	ProcessH2R = "h2r" // Hire to Retire
	ProcessP2M = "p2m" // Plan to Manufacture
	ProcessM2S = "m2s" // Maintain to Settle
)

// SLA severities.
const (
	SeverityHigh   = "high"
	SeverityMedium = "medium"
	SeverityLow    = "low"
)

const hoursUnit = "hours"

var builtins = map[string]func() *Model{
	ProcessO2C: orderToCash,
	ProcessP2P: procureToPay,
	ProcessR2R: recordToReport,
	ProcessA2R: acquireToRetire,
	ProcessH2R: hireToRetire,
	ProcessP2M: planToManufacture,
	ProcessM2S: maintainToSettle,
}

// Get returns a fresh copy of the built-in model, or nil for unknown ids.
// Each call builds a new instance so callers can annotate without sharing.
func Get(id string) *Model {
	build, ok := builtins[id]
	if !ok {
		return nil
	}

	return build()
}

// List returns the built-in model ids in sorted order.
func List() []string {
	ids := make([]string, 0, len(builtins))
	for id := range builtins {
		ids = append(ids, id)
	}

	sort.Strings(ids)

	return ids
}

func orderToCash() *Model {
	m := New(ProcessO2C, "Order to Cash")

	m.AddEdge("Create Sales Order", "Credit Check", EdgeSequence)
	m.AddEdge("Credit Check", "Create Delivery", EdgeSequence)
	m.AddEdge("Create Sales Order", "Create Delivery", EdgeChoice)
	m.AddEdge("Create Delivery", "Pick", EdgeSequence)
	m.AddEdge("Pick", "Pack", EdgeSequence)
	m.AddEdge("Pack", "Goods Issue", EdgeSequence)
	m.AddEdge("Goods Issue", "Create Invoice", EdgeSequence)
	m.AddEdge("Create Invoice", "Send Invoice", EdgeSequence)
	m.AddEdge("Send Invoice", "Payment Received", EdgeSequence)
	m.AddEdge("Payment Received", "Clear Invoice", EdgeSequence)
	// Dunning loop: unpaid invoices are re-sent.
	m.AddEdge("Send Invoice", "Dunning Notice", EdgeChoice)
	m.AddEdge("Dunning Notice", "Payment Received", EdgeSequence)

	m.SetStart("Create Sales Order")
	m.SetEnd("Clear Invoice")

	m.SetSLA("Create Sales Order", "Credit Check", SLATarget{Target: 4, Unit: hoursUnit, Severity: SeverityMedium})
	m.SetSLA("Credit Check", "Create Delivery", SLATarget{Target: 24, Unit: hoursUnit, Severity: SeverityHigh})
	m.SetSLA("Goods Issue", "Create Invoice", SLATarget{Target: 24, Unit: hoursUnit, Severity: SeverityHigh})
	m.SetSLA("Send Invoice", "Payment Received", SLATarget{Target: 720, Unit: hoursUnit, Severity: SeverityLow})

	m.MarkCritical("Credit Check", "Create Delivery")
	m.MarkCritical("Goods Issue", "Create Invoice")

	return m
}

func procureToPay() *Model {
	m := New(ProcessP2P, "Procure to Pay")

	m.AddEdge("Create Purchase Requisition", "Approve Requisition", EdgeSequence)
	m.AddEdge("Approve Requisition", "Create Purchase Order", EdgeSequence)
	m.AddEdge("Create Purchase Order", "Approve Purchase Order", EdgeSequence)
	m.AddEdge("Approve Purchase Order", "Goods Receipt", EdgeSequence)
	m.AddEdge("Goods Receipt", "Invoice Receipt", EdgeParallel)
	m.AddEdge("Approve Purchase Order", "Invoice Receipt", EdgeParallel)
	m.AddEdge("Invoice Receipt", "Payment Run", EdgeSequence)
	m.AddEdge("Payment Run", "Clear Vendor Invoice", EdgeSequence)
	// Rejected requisitions are reworked.
	m.AddEdge("Approve Requisition", "Create Purchase Requisition", EdgeChoice)

	m.SetStart("Create Purchase Requisition")
	m.SetEnd("Clear Vendor Invoice")

	m.SetSLA("Create Purchase Requisition", "Approve Requisition", SLATarget{Target: 48, Unit: hoursUnit, Severity: SeverityMedium})
	m.SetSLA("Invoice Receipt", "Payment Run", SLATarget{Target: 336, Unit: hoursUnit, Severity: SeverityHigh})

	m.MarkCritical("Approve Purchase Order", "Goods Receipt")
	m.MarkCritical("Invoice Receipt", "Payment Run")

	return m
}

func recordToReport() *Model {
	m := New(ProcessR2R, "Record to Report")

	m.AddEdge("Create Journal Entry", "Park Document", EdgeChoice)
	m.AddEdge("Park Document", "Post Document", EdgeSequence)
	m.AddEdge("Create Journal Entry", "Post Document", EdgeChoice)
	m.AddEdge("Post Document", "Reconcile Accounts", EdgeSequence)
	m.AddEdge("Reconcile Accounts", "Period-End Close", EdgeSequence)
	m.AddEdge("Period-End Close", "Financial Statements", EdgeSequence)
	// Monthly close restarts the cycle.
	m.AddEdge("Period-End Close", "Create Journal Entry", EdgeChoice)

	m.SetStart("Create Journal Entry")
	m.SetEnd("Financial Statements")

	m.SetSLA("Reconcile Accounts", "Period-End Close", SLATarget{Target: 72, Unit: hoursUnit, Severity: SeverityHigh})

	m.MarkCritical("Period-End Close", "Financial Statements")

	return m
}

func acquireToRetire() *Model {
	m := New(ProcessA2R, "Acquire to Retire")

	m.AddEdge("Create Asset", "Capitalize Asset", EdgeSequence)
	m.AddEdge("Capitalize Asset", "Post Depreciation", EdgeSequence)
	// Recurring monthly depreciation.
	m.AddEdge("Post Depreciation", "Post Depreciation", EdgeChoice)
	m.AddEdge("Post Depreciation", "Transfer Asset", EdgeChoice)
	m.AddEdge("Transfer Asset", "Post Depreciation", EdgeChoice)
	m.AddEdge("Post Depreciation", "Retire Asset", EdgeSequence)

	m.SetStart("Create Asset")
	m.SetEnd("Retire Asset")

	m.SetSLA("Create Asset", "Capitalize Asset", SLATarget{Target: 168, Unit: hoursUnit, Severity: SeverityMedium})

	m.MarkCritical("Capitalize Asset", "Post Depreciation")

	return m
}

func hireToRetire() *Model {
	m := New(ProcessH2R, "Hire to Retire")

	m.AddEdge("Hire Employee", "Maintain Master Data", EdgeSequence)
	m.AddEdge("Maintain Master Data", "Time Recording", EdgeSequence)
	m.AddEdge("Time Recording", "Run Payroll", EdgeSequence)
	m.AddEdge("Run Payroll", "Post Payroll", EdgeSequence)
	// Payroll repeats every period.
	m.AddEdge("Post Payroll", "Time Recording", EdgeChoice)
	m.AddEdge("Post Payroll", "Terminate Employee", EdgeChoice)

	m.SetStart("Hire Employee")
	m.SetEnd("Terminate Employee")

	m.SetSLA("Run Payroll", "Post Payroll", SLATarget{Target: 24, Unit: hoursUnit, Severity: SeverityHigh})

	m.MarkCritical("Run Payroll", "Post Payroll")

	return m
}

func planToManufacture() *Model {
	m := New(ProcessP2M, "Plan to Manufacture")

	m.AddEdge("Create Planned Order", "Convert to Production Order", EdgeSequence)
	m.AddEdge("Convert to Production Order", "Release Production Order", EdgeSequence)
	m.AddEdge("Release Production Order", "Goods Issue Components", EdgeSequence)
	m.AddEdge("Goods Issue Components", "Confirm Operations", EdgeSequence)
	m.AddEdge("Confirm Operations", "Goods Receipt Production", EdgeSequence)
	// Multi-operation orders confirm repeatedly.
	m.AddEdge("Confirm Operations", "Confirm Operations", EdgeChoice)
	m.AddEdge("Goods Receipt Production", "Settle Order", EdgeSequence)

	m.SetStart("Create Planned Order")
	m.SetEnd("Settle Order")

	m.SetSLA("Release Production Order", "Goods Issue Components", SLATarget{Target: 24, Unit: hoursUnit, Severity: SeverityMedium})

	m.MarkCritical("Goods Receipt Production", "Settle Order")

	return m
}

func maintainToSettle() *Model {
	m := New(ProcessM2S, "Maintain to Settle")

	m.AddEdge("Create Notification", "Create Maintenance Order", EdgeSequence)
	m.AddEdge("Create Maintenance Order", "Release Order", EdgeSequence)
	m.AddEdge("Release Order", "Execute Work", EdgeSequence)
	m.AddEdge("Execute Work", "Confirm Work", EdgeSequence)
	m.AddEdge("Confirm Work", "Execute Work", EdgeChoice)
	m.AddEdge("Confirm Work", "Technically Complete", EdgeSequence)
	m.AddEdge("Technically Complete", "Settle Costs", EdgeSequence)

	m.SetStart("Create Notification")
	m.SetEnd("Settle Costs")

	m.SetSLA("Create Notification", "Create Maintenance Order", SLATarget{Target: 8, Unit: hoursUnit, Severity: SeverityHigh})

	m.MarkCritical("Release Order", "Execute Work")

	return m
}

package models

// All lists every model the application migrates, in dependency order.
func All() []interface{} {
	return []interface{}{
		&User{},
		&Company{},
		&Article{},
		&Invoice{},
		&InvoiceItem{},
		&AuditLog{},
	}
}

package models

func (a Animal) Key() uint     { return a.ID }
func (a Animal) OwnedBy() uint { return a.OwnerID }

func (b AnimalBatch) Key() uint     { return b.ID }
func (b AnimalBatch) OwnedBy() uint { return b.OwnerID }

func (c Customer) Key() uint     { return c.ID }
func (c Customer) OwnedBy() uint { return c.OwnerID }

func (s Supplier) Key() uint     { return s.ID }
func (s Supplier) OwnedBy() uint { return s.OwnerID }

func (c FinancialCategory) Key() uint     { return c.ID }
func (c FinancialCategory) OwnedBy() uint { return c.OwnerID }

func (r FinancialRecord) Key() uint     { return r.ID }
func (r FinancialRecord) OwnedBy() uint { return r.OwnerID }

func (i Invoice) Key() uint     { return i.ID }
func (i Invoice) OwnedBy() uint { return i.OwnerID }

func (o PurchaseOrder) Key() uint     { return o.ID }
func (o PurchaseOrder) OwnedBy() uint { return o.OwnerID }

func (i InventoryItem) Key() uint     { return i.ID }
func (i InventoryItem) OwnedBy() uint { return i.OwnerID }

func (a Asset) Key() uint     { return a.ID }
func (a Asset) OwnedBy() uint { return a.OwnerID }

func (m MaintenanceRecord) Key() uint     { return m.ID }
func (m MaintenanceRecord) OwnedBy() uint { return m.OwnerID }

func (t Task) Key() uint     { return t.ID }
func (t Task) OwnedBy() uint { return t.OwnerID }

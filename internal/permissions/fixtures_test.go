package permissions

func pawnCatalog() *Catalog {
	return NewCatalog([]Module{
		{Name: "pledge", Permissions: []Permission{
			{ID: "pledge.create", Name: "Create pledge"},
			{ID: "pledge.view", Name: "View pledges"},
			{ID: "pledge.renew", Name: "Renew pledge"},
		}},
		{Name: "reports", Permissions: []Permission{
			{ID: "reports.view", Name: "View reports"},
			{ID: "reports.export", Name: "Export reports"},
		}},
		{Name: "user", Permissions: []Permission{
			{ID: "user.view", Name: "View users"},
			{ID: "user.delete", Name: "Delete users"},
		}},
	})
}

func cashier() *RoleBaseline {
	return NewRoleBaseline(1, "pledge.create", "pledge.view")
}

func manager() *RoleBaseline {
	return NewRoleBaseline(2, "pledge.create", "pledge.view", "pledge.renew", "reports.view", "reports.export", "user.view")
}

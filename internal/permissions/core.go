package permissions

// SuperAdmin is the permission gating platform-wide moderation rights.
const SuperAdmin = "platform.admin"

func init() {
	perms := []*Permission{
		{
			ID:          "store.view",
			Module:      "platform",
			Description: "View stores",
		},
		{
			ID:          "store.manage",
			Module:      "platform",
			DependsOn:   []string{"store.view"},
			Description: "Create and update stores",
		},
		{
			ID:          "workstation.view",
			Module:      "platform",
			DependsOn:   []string{"store.view"},
			Description: "View workstations",
		},
		{
			ID:          "workstation.manage",
			Module:      "platform",
			DependsOn:   []string{"workstation.view"},
			Description: "Create, assign and update workstations",
		},
		{
			ID:          "barber.view",
			Module:      "platform",
			DependsOn:   []string{"store.view"},
			Description: "View barbers",
		},
		{
			ID:          "barber.manage",
			Module:      "platform",
			DependsOn:   []string{"barber.view"},
			Description: "Manage barbers and invitations",
		},
		{
			ID:          "ad.view",
			Module:      "platform",
			Description: "View advertisements",
		},
		{
			ID:          "ad.manage",
			Module:      "platform",
			DependsOn:   []string{"ad.view"},
			Description: "Manage advertisements",
		},
		{
			ID:          "audit.view",
			Module:      "core",
			Description: "View audit logs",
		},
		{
			ID:     SuperAdmin,
			Module: "core",
			Implies: []string{
				"store.view", "store.manage",
				"workstation.view", "workstation.manage",
				"barber.view", "barber.manage",
				"ad.view", "ad.manage",
				"audit.view",
			},
			Description: "Platform-wide moderation rights (ban, delete, impersonate any account)",
		},
	}

	for _, perm := range perms {
		if err := Register(perm); err != nil {
			panic(err)
		}
	}
}

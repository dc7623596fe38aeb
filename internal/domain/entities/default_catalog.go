package entities

// DefaultRelationshipTypes are the built-in relationship types. The list is
// symmetric: every inverse named here points back at its source.
var DefaultRelationshipTypes = []RelationshipType{
	// Family
	{ID: "parent", Category: CategoryFamily, Label: "Parent", InverseTypeID: "child"},
	{ID: "child", Category: CategoryFamily, Label: "Child", InverseTypeID: "parent"},
	{ID: "sibling", Category: CategoryFamily, Label: "Sibling", InverseTypeID: "sibling"},
	{ID: "spouse", Category: CategoryFamily, Label: "Spouse", InverseTypeID: "spouse"},
	{ID: "partner", Category: CategoryFamily, Label: "Partner", InverseTypeID: "partner"},
	{ID: "grandparent", Category: CategoryFamily, Label: "Grandparent", InverseTypeID: "grandchild"},
	{ID: "grandchild", Category: CategoryFamily, Label: "Grandchild", InverseTypeID: "grandparent"},
	{ID: "uncle_aunt", Category: CategoryFamily, Label: "Uncle/Aunt", InverseTypeID: "nephew_niece"},
	{ID: "nephew_niece", Category: CategoryFamily, Label: "Nephew/Niece", InverseTypeID: "uncle_aunt"},
	{ID: "cousin", Category: CategoryFamily, Label: "Cousin", InverseTypeID: "cousin"},
	{ID: "stepparent", Category: CategoryFamily, Label: "Stepparent", InverseTypeID: "stepchild"},
	{ID: "stepchild", Category: CategoryFamily, Label: "Stepchild", InverseTypeID: "stepparent"},

	// Professional
	{ID: "colleague", Category: CategoryProfessional, Label: "Colleague", InverseTypeID: "colleague"},
	{ID: "manager", Category: CategoryProfessional, Label: "Manager", InverseTypeID: "report"},
	{ID: "report", Category: CategoryProfessional, Label: "Direct report", InverseTypeID: "manager"},
	{ID: "mentor", Category: CategoryProfessional, Label: "Mentor", InverseTypeID: "mentee"},
	{ID: "mentee", Category: CategoryProfessional, Label: "Mentee", InverseTypeID: "mentor"},
	{ID: "business_partner", Category: CategoryProfessional, Label: "Business partner", InverseTypeID: "business_partner"},

	// Social
	{ID: "friend", Category: CategorySocial, Label: "Friend", InverseTypeID: "friend"},
	{ID: "acquaintance", Category: CategorySocial, Label: "Acquaintance", InverseTypeID: "acquaintance"},
	{ID: "neighbor", Category: CategorySocial, Label: "Neighbor", InverseTypeID: "neighbor"},
	{ID: "teammate", Category: CategorySocial, Label: "Teammate", InverseTypeID: "teammate"},
	{ID: "roommate", Category: CategorySocial, Label: "Roommate", InverseTypeID: "roommate"},
}

// Built-in collective type ids.
const (
	CollectiveFamily  = "family"
	CollectiveCompany = "company"
	CollectiveClub    = "club"
)

// DefaultCollectiveTypes are the system collective types visible to every user.
var DefaultCollectiveTypes = []CollectiveType{
	systemType(CollectiveFamily, "Family",
		[]CollectiveRole{
			role(CollectiveFamily, "parent", "Parent", 1),
			role(CollectiveFamily, "child", "Child", 2),
			role(CollectiveFamily, "sibling", "Sibling", 3),
			role(CollectiveFamily, "spouse", "Spouse", 4),
		},
		[]RelationshipRule{
			rule(CollectiveFamily, "child", "parent", "parent", DirectionExistingMember),
			rule(CollectiveFamily, "parent", "child", "parent", DirectionNewMember),
			rule(CollectiveFamily, "child", "child", "sibling", DirectionBoth),
			rule(CollectiveFamily, "sibling", "sibling", "sibling", DirectionBoth),
			rule(CollectiveFamily, "sibling", "child", "sibling", DirectionBoth),
			rule(CollectiveFamily, "child", "sibling", "sibling", DirectionBoth),
			rule(CollectiveFamily, "spouse", "spouse", "spouse", DirectionBoth),
		},
	),
	systemType(CollectiveCompany, "Company",
		[]CollectiveRole{
			role(CollectiveCompany, "owner", "Owner", 1),
			role(CollectiveCompany, "manager", "Manager", 2),
			role(CollectiveCompany, "employee", "Employee", 3),
		},
		[]RelationshipRule{
			rule(CollectiveCompany, "owner", "owner", "business_partner", DirectionBoth),
			rule(CollectiveCompany, "employee", "manager", "manager", DirectionExistingMember),
			rule(CollectiveCompany, "manager", "employee", "manager", DirectionNewMember),
			rule(CollectiveCompany, "employee", "employee", "colleague", DirectionBoth),
			rule(CollectiveCompany, "manager", "manager", "colleague", DirectionBoth),
		},
	),
	systemType(CollectiveClub, "Club",
		[]CollectiveRole{
			role(CollectiveClub, "organizer", "Organizer", 1),
			role(CollectiveClub, "member", "Member", 2),
		},
		[]RelationshipRule{
			rule(CollectiveClub, "member", "member", "teammate", DirectionBoth),
			rule(CollectiveClub, "member", "organizer", "teammate", DirectionBoth),
			rule(CollectiveClub, "organizer", "member", "teammate", DirectionBoth),
			rule(CollectiveClub, "organizer", "organizer", "teammate", DirectionBoth),
		},
	),
}

func systemType(id, name string, roles []CollectiveRole, rules []RelationshipRule) CollectiveType {
	return CollectiveType{
		ID:              id,
		Name:            name,
		IsSystemDefault: true,
		Roles:           roles,
		Rules:           rules,
	}
}

func role(typeID, key, label string, sortOrder int) CollectiveRole {
	return CollectiveRole{
		ID:               RoleID(typeID, key),
		CollectiveTypeID: typeID,
		RoleKey:          key,
		Label:            label,
		SortOrder:        sortOrder,
	}
}

func rule(typeID, newRole, existingRole, relType string, dir Direction) RelationshipRule {
	return RelationshipRule{
		CollectiveTypeID:     typeID,
		NewMemberRoleID:      RoleID(typeID, newRole),
		ExistingMemberRoleID: RoleID(typeID, existingRole),
		RelationshipTypeID:   relType,
		Direction:            dir,
	}
}

package domain

// RoomKey names a broadcast group. Keys derive from ids alone.
type RoomKey string

func OrgRoom(id OrganizationID) RoomKey { return RoomKey("org:" + string(id)) }
func ProjectRoom(id ProjectID) RoomKey  { return RoomKey("project:" + string(id)) }

// StatsRoom is qualified by organization as well as user, so a user with
// tabs in two organizations only sees each tab's own numbers.
func StatsRoom(org OrganizationID, user UserID) RoomKey {
	return RoomKey("stats:" + string(user) + "@" + string(org))
}

func UserTasksRoom(org OrganizationID, user UserID) RoomKey {
	return RoomKey("user-tasks:" + string(user) + "@" + string(org))
}

package browser

var CompareVersions = compareVersions
